/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package quotation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document"
	"github.com/cova-team/quotesync/pkg/document/crdt"
	"github.com/cova-team/quotesync/pkg/document/json"
)

// Event tells an observer that a path of the quotation changed.
type Event struct {
	// Paths are the changed paths under the observed one, such as
	// `$.quotationItems.records.<id>.name`.
	Paths []string

	// Local is true for edits of this replica.
	Local bool
}

// Path returns the document path of the given keys: Path() is the root,
// Path(CustomerName) is `$.customerName`.
func Path(keys ...string) string {
	return strings.Join(append([]string{"$"}, keys...), ".")
}

// RecordPath returns the path of a record, or of one of its fields.
func RecordPath(collection, recordID string, field ...string) string {
	return Path(append([]string{collection, recordsKey, recordID}, field...)...)
}

// Observe calls the callback after every local or remote change touching the
// path. It returns the function that stops the observation.
func (q *Quotation) Observe(path string, callback func(Event)) func() {
	return q.doc.Subscribe(path, func(e document.Event) {
		callback(Event{Paths: e.Paths, Local: e.Type == document.LocalChangeEvent})
	})
}

// Snapshot returns the plain-object projection of the quotation.
func (q *Quotation) Snapshot() *types.Snapshot {
	snapshot := &types.Snapshot{
		QuotationItems: []types.QuotationItem{},
		PaymentTerms:   []types.PaymentTerm{},
		CompanyInfo:    make(map[string]string),
	}

	q.doc.View(func(root *crdt.Object) {
		snapshot.CustomerName = textOf(root.Get(CustomerName))
		snapshot.ProjectDescription = textOf(root.Get(ProjectDescription))

		if info, ok := root.Get(CompanyInfo).(*crdt.Object); ok {
			for _, k := range info.Keys() {
				if v, ok := primitiveValue(info.Get(k)); ok {
					snapshot.CompanyInfo[k] = stringOf(v)
				}
			}
		}

		for _, r := range recordsOf(root, QuotationItems) {
			snapshot.QuotationItems = append(snapshot.QuotationItems, types.QuotationItemFromFields(r.ID, r.Fields))
		}
		for _, r := range recordsOf(root, PaymentTerms) {
			snapshot.PaymentTerms = append(snapshot.PaymentTerms, types.PaymentTermFromFields(r.ID, r.Fields))
		}
	})

	return snapshot
}

// Records returns the records of the collection in display order.
func (q *Quotation) Records(collection string) ([]Record, error) {
	if _, err := fieldsOf(collection); err != nil {
		return nil, err
	}

	var records []Record
	q.doc.View(func(root *crdt.Object) {
		records = recordsOf(root, collection)
	})
	return records, nil
}

// Version returns how many times fields of the record were edited, and the
// id of its last editor.
func (q *Quotation) Version(collection, recordID string) (int64, string, bool) {
	var version int64
	var editor string
	found := false
	q.doc.View(func(root *crdt.Object) {
		record := recordObject(root, collection, recordID)
		if record == nil {
			return
		}
		found = true
		if counter, ok := record.Get(versionKey).(*crdt.Counter); ok {
			version = counter.Value()
		}
		if v, ok := primitiveValue(record.Get(lastEditedByKey)); ok {
			editor = stringOf(v)
		}
	})
	return version, editor, found
}

// recordsOf projects a collection: the order list with duplicates and
// removed records dropped, followed by records the order list misses, by id.
func recordsOf(root *crdt.Object, collection string) []Record {
	coll, ok := root.Get(collection).(*crdt.Object)
	if !ok {
		return nil
	}
	recordsObj, ok := coll.Get(recordsKey).(*crdt.Object)
	if !ok {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	if order, ok := coll.Get(orderKey).(*crdt.Array); ok {
		for _, id := range idsOf(order.Elements()) {
			if seen[id] || !recordsObj.Has(id) {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	// Keys are sorted.
	for _, id := range recordsObj.Keys() {
		if !seen[id] {
			ids = append(ids, id)
		}
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		record, ok := recordsObj.Get(id).(*crdt.Object)
		if !ok {
			continue
		}
		fields := make(map[string]interface{})
		for _, field := range collectionFields[collection] {
			if v, ok := primitiveValue(record.Get(field)); ok {
				fields[field] = v
			}
		}
		records = append(records, Record{ID: id, Fields: fields})
	}
	return records
}

func recordObject(root *crdt.Object, collection, recordID string) *crdt.Object {
	coll, ok := root.Get(collection).(*crdt.Object)
	if !ok {
		return nil
	}
	recordsObj, ok := coll.Get(recordsKey).(*crdt.Object)
	if !ok {
		return nil
	}
	record, _ := recordsObj.Get(recordID).(*crdt.Object)
	return record
}

func recordsOfSnapshot(snapshot *types.Snapshot, collection string) []Record {
	var records []Record
	switch collection {
	case QuotationItems:
		records = ItemRecords(snapshot.QuotationItems)
	case PaymentTerms:
		records = TermRecords(snapshot.PaymentTerms)
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = NewRecordID()
		}
	}
	return records
}

// ItemRecords converts quotation items to records.
func ItemRecords(items []types.QuotationItem) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, Record{ID: item.ID, Fields: item.Fields()})
	}
	return records
}

// TermRecords converts payment terms to records.
func TermRecords(terms []types.PaymentTerm) []Record {
	records := make([]Record, 0, len(terms))
	for _, term := range terms {
		records = append(records, Record{ID: term.ID, Fields: term.Fields()})
	}
	return records
}

// TotalAmount returns the sum of the amounts of the items.
func TotalAmount(items []types.QuotationItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Amount()
	}
	return total
}

// TotalPaymentPercentage returns the sum of the percentages of the terms.
// Anything but 100 means the terms need fixing.
func TotalPaymentPercentage(terms []types.PaymentTerm) float64 {
	total := 0.0
	for _, term := range terms {
		total += term.Percentage
	}
	return total
}

func orderOf(arr *json.Array) []string {
	return idsOf(arr.Elements())
}

func idsOf(elements []crdt.Element) []string {
	ids := make([]string, 0, len(elements))
	for _, elem := range elements {
		if v, ok := primitiveValue(elem); ok {
			if id, ok := v.(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func textOf(elem crdt.Element) string {
	if text, ok := elem.(*crdt.Text); ok {
		return text.String()
	}
	return ""
}

func primitiveValue(elem crdt.Element) (interface{}, bool) {
	p, ok := elem.(*crdt.Primitive)
	if !ok {
		return nil, false
	}
	return p.Value(), true
}

func stringOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
