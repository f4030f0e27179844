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

// Package quotation is the shared quotation of a room: two text fields, the
// company info, and two record collections kept as an order list of ids
// beside a map of records whose fields are independent registers.
package quotation

import (
	"fmt"
	"sort"

	"github.com/rs/xid"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document"
	"github.com/cova-team/quotesync/pkg/document/json"
	"github.com/cova-team/quotesync/pkg/document/time"
	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/pkg/fieldrouter"
	"github.com/cova-team/quotesync/server/logging"
)

// Top-level keys of the document.
const (
	CustomerName       = "customerName"
	ProjectDescription = "projectDescription"
	CompanyInfo        = "companyInfo"
	QuotationItems     = "quotationItems"
	PaymentTerms       = "paymentTerms"
)

const (
	orderKey        = "order"
	recordsKey      = "records"
	versionKey      = "_version"
	lastEditedByKey = "_lastEditedBy"
)

var (
	// ErrStaleRecordReference is returned when a record is not in the
	// collection, usually because someone else just removed it.
	ErrStaleRecordReference = errors.NotFound("record not found").WithCode("ErrStaleRecordReference")

	// ErrUnknownField is returned for a text field or a record field that
	// is not part of the quotation.
	ErrUnknownField = errors.InvalidArgument("unknown field").WithCode("ErrUnknownField")

	// ErrUnknownCollection is returned for a collection other than the
	// quotation items and the payment terms.
	ErrUnknownCollection = errors.InvalidArgument("unknown collection").WithCode("ErrUnknownCollection")

	// ErrInvalidRecord is returned for a record without id.
	ErrInvalidRecord = errors.InvalidArgument("record without id").WithCode("ErrInvalidRecord")
)

var textFields = map[string]bool{
	CustomerName:       true,
	ProjectDescription: true,
}

var collectionFields = map[string][]string{
	QuotationItems: types.QuotationItemFields,
	PaymentTerms:   types.PaymentTermFields,
}

// Collections are the record collections in a fixed order.
var Collections = []string{QuotationItems, PaymentTerms}

// Record is a record of a collection.
type Record struct {
	ID     string
	Fields map[string]interface{}
}

// RecordID returns the id of the record.
func (r Record) RecordID() string {
	return r.ID
}

// NewRecordID returns a new record id. Ids are never reused.
func NewRecordID() string {
	return xid.New().String()
}

// Schema creates the structure every replica starts with.
func Schema(root *json.Object) error {
	root.SetNewText(CustomerName)
	root.SetNewText(ProjectDescription)
	root.SetNewObject(CompanyInfo)
	for _, name := range Collections {
		collection := root.SetNewObject(name)
		collection.SetNewArray(orderKey)
		collection.SetNewObject(recordsKey)
	}
	return nil
}

// Option configures Quotation.
type Option func(*Options)

// Options are the options of Quotation.
type Options struct {
	// Editor returns the id of the user editing, stamped on edited records.
	// It is called on every edit.
	Editor func() string

	Logger logging.Logger
}

// WithEditor configures the function returning the current editor.
func WithEditor(editor func() string) Option {
	return func(o *Options) { o.Editor = editor }
}

// WithLogger configures the logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Quotation is a replica of the quotation of a room.
type Quotation struct {
	doc    *document.Document
	editor func() string
	logger logging.Logger
}

// New creates a replica of the quotation of the given room.
func New(roomCode string, actorID time.ActorID, opts ...Option) (*Quotation, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Editor == nil {
		options.Editor = func() string { return "" }
	}
	if options.Logger == nil {
		options.Logger = logging.DefaultLogger()
	}

	doc, err := document.New(roomCode, actorID, document.WithSchema(Schema))
	if err != nil {
		return nil, err
	}

	return &Quotation{
		doc:    doc,
		editor: options.Editor,
		logger: options.Logger,
	}, nil
}

// Document returns the underlying document.
func (q *Quotation) Document() *document.Document {
	return q.doc
}

// SetText replaces the content of the given text field.
func (q *Quotation) SetText(field, value string) error {
	if !textFields[field] {
		return fmt.Errorf("text field %s: %w", field, ErrUnknownField)
	}

	return q.doc.Update(func(root *json.Object) error {
		return root.GetText(field).Replace(value)
	}, "set %s", field)
}

// SetRecordField sets one field of a record. A record that is no longer in
// the collection is ignored.
func (q *Quotation) SetRecordField(collection, recordID, field string, value interface{}) error {
	fields, err := fieldsOf(collection)
	if err != nil {
		return err
	}
	if !contains(fields, field) {
		return fmt.Errorf("%s field %s: %w", collection, field, ErrUnknownField)
	}
	value = normalize(field, value)

	err = q.doc.Update(func(root *json.Object) error {
		record, err := lookup(root, collection, recordID)
		if err != nil {
			return err
		}
		if current, ok := primitiveValue(record.Get(field)); ok && current == value {
			return nil
		}
		return q.touch(record, field, value)
	}, "set %s.%s.%s", collection, recordID, field)
	if errors.Is(err, ErrStaleRecordReference) {
		q.logger.Debugf("skip %s.%s of removed record %s", collection, field, recordID)
		return nil
	}
	return err
}

// ReplaceCollection reconciles the structure of the collection with the
// given records: missing records are removed, new ones are created with all
// their fields, and the order is rewritten. Fields of records already in the
// collection are left as they are.
func (q *Quotation) ReplaceCollection(collection string, records []Record) error {
	fields, err := fieldsOf(collection)
	if err != nil {
		return err
	}

	return q.doc.Update(func(root *json.Object) error {
		return q.replaceStructure(root.GetObject(collection), fields, records)
	}, "replace %s", collection)
}

// AddRecord appends a record to the collection and returns its id. A new id
// is issued if the record has none.
func (q *Quotation) AddRecord(collection string, record Record) (string, error) {
	fields, err := fieldsOf(collection)
	if err != nil {
		return "", err
	}
	if record.ID == "" {
		record.ID = NewRecordID()
	}

	err = q.doc.Update(func(root *json.Object) error {
		coll := root.GetObject(collection)
		records := coll.GetObject(recordsKey)
		if !records.Has(record.ID) {
			if err := q.createRecord(records, fields, record); err != nil {
				return err
			}
		}
		if contains(orderOf(coll.GetArray(orderKey)), record.ID) {
			return nil
		}
		return coll.GetArray(orderKey).AddString(record.ID)
	}, "add %s.%s", collection, record.ID)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// RemoveRecord removes the record from the collection. Removing a record
// that is not there is a no-op.
func (q *Quotation) RemoveRecord(collection, recordID string) error {
	if _, err := fieldsOf(collection); err != nil {
		return err
	}

	return q.doc.Update(func(root *json.Object) error {
		coll := root.GetObject(collection)
		coll.GetObject(recordsKey).Delete(recordID)

		order := coll.GetArray(orderKey)
		ids := orderOf(order)
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i] != recordID {
				continue
			}
			if _, err := order.Delete(i); err != nil {
				return err
			}
		}
		return nil
	}, "remove %s.%s", collection, recordID)
}

// SetCompanyInfo sets every given key of the company info. Keys not given
// are kept.
func (q *Quotation) SetCompanyInfo(info map[string]string) error {
	return q.doc.Update(func(root *json.Object) error {
		setCompanyInfo(root.GetObject(CompanyInfo), info)
		return nil
	}, "set company info")
}

// Populate loads the snapshot into the quotation in one change: text fields,
// company info, the structure of both collections and the fields of every
// given record.
func (q *Quotation) Populate(snapshot *types.Snapshot) error {
	if snapshot == nil {
		return nil
	}

	return q.doc.Update(func(root *json.Object) error {
		if err := root.GetText(CustomerName).Replace(snapshot.CustomerName); err != nil {
			return err
		}
		if err := root.GetText(ProjectDescription).Replace(snapshot.ProjectDescription); err != nil {
			return err
		}
		setCompanyInfo(root.GetObject(CompanyInfo), snapshot.CompanyInfo)

		for _, name := range Collections {
			records := recordsOfSnapshot(snapshot, name)
			coll := root.GetObject(name)
			if err := q.replaceStructure(coll, collectionFields[name], records); err != nil {
				return err
			}
			for _, r := range records {
				if err := q.setFields(coll.GetObject(recordsKey).GetObject(r.ID), collectionFields[name], r.Fields); err != nil {
					return err
				}
			}
		}
		return nil
	}, "populate")
}

func (q *Quotation) replaceStructure(coll *json.Object, fields []string, records []Record) error {
	ids := make([]string, 0, len(records))
	wanted := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ID == "" {
			return ErrInvalidRecord
		}
		if wanted[r.ID] {
			continue
		}
		wanted[r.ID] = true
		ids = append(ids, r.ID)
	}

	recordsObj := coll.GetObject(recordsKey)
	for _, key := range recordsObj.Keys() {
		if !wanted[key] {
			recordsObj.Delete(key)
		}
	}
	for _, r := range records {
		if recordsObj.Has(r.ID) {
			continue
		}
		if err := q.createRecord(recordsObj, fields, r); err != nil {
			return err
		}
	}

	order := coll.GetArray(orderKey)
	if equalIDs(orderOf(order), ids) {
		return nil
	}
	if err := order.Clear(); err != nil {
		return err
	}
	return order.AddString(ids...)
}

func (q *Quotation) createRecord(records *json.Object, fields []string, r Record) error {
	record := records.SetNewObject(r.ID)
	for _, field := range fields {
		if err := record.SetValue(field, normalize(field, r.Fields[field])); err != nil {
			return fmt.Errorf("create %s.%s: %w", r.ID, field, err)
		}
	}
	record.SetNewCounter(versionKey, 0)
	record.SetString(lastEditedByKey, q.editor())
	return nil
}

// setFields writes the given fields that differ from the record.
func (q *Quotation) setFields(record *json.Object, fields []string, values map[string]interface{}) error {
	for _, field := range fields {
		v, ok := values[field]
		if !ok {
			continue
		}
		v = normalize(field, v)
		if current, ok := primitiveValue(record.Get(field)); ok && current == v {
			continue
		}
		if err := q.touch(record, field, v); err != nil {
			return err
		}
	}
	return nil
}

// touch sets the field and stamps the record with the editor.
func (q *Quotation) touch(record *json.Object, field string, value interface{}) error {
	if err := record.SetValue(field, value); err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	if counter := record.GetCounter(versionKey); counter != nil {
		counter.Increase(1)
	} else {
		record.SetNewCounter(versionKey, 1)
	}
	record.SetString(lastEditedByKey, q.editor())
	return nil
}

func setCompanyInfo(obj *json.Object, info map[string]string) {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if current, ok := primitiveValue(obj.Get(k)); ok && current == info[k] {
			continue
		}
		obj.SetString(k, info[k])
	}
}

func lookup(root *json.Object, collection, recordID string) (*json.Object, error) {
	record := root.GetObject(collection).GetObject(recordsKey).GetObject(recordID)
	if record == nil {
		return nil, fmt.Errorf("%s.%s: %w", collection, recordID, ErrStaleRecordReference)
	}
	return record, nil
}

func fieldsOf(collection string) ([]string, error) {
	fields, ok := collectionFields[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collection, ErrUnknownCollection)
	}
	return fields, nil
}

// normalize turns the value into what is stored for the field: a finite
// number for numeric fields, a string for every other field.
func normalize(field string, value interface{}) interface{} {
	if fieldrouter.NumericFields[field] {
		return fieldrouter.Coerce(field, value)
	}

	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	return fmt.Sprint(value)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
