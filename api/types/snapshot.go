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

// Package types provides the types shared between the document, the wire
// codec, and the collaborators outside of the core such as importers.
package types

import (
	"fmt"
	"strconv"
)

// Snapshot is the plain-object projection of a quotation document. Importers
// and exporters work on this shape only.
type Snapshot struct {
	// CustomerName is the name of the customer or the project.
	CustomerName string `json:"customerName" yaml:"customerName"`

	// ProjectDescription is the free-form description of the project.
	ProjectDescription string `json:"projectDescription" yaml:"projectDescription"`

	// QuotationItems are the line items in display order.
	QuotationItems []QuotationItem `json:"quotationItems" yaml:"quotationItems"`

	// PaymentTerms are the payment milestones in display order.
	PaymentTerms []PaymentTerm `json:"paymentTerms" yaml:"paymentTerms"`

	// CompanyInfo holds the contact details printed on the quotation.
	CompanyInfo map[string]string `json:"companyInfo" yaml:"companyInfo"`
}

// IsEmpty returns whether nobody has entered anything into the quotation.
func (s *Snapshot) IsEmpty() bool {
	return s.CustomerName == "" && s.ProjectDescription == "" && len(s.QuotationItems) == 0
}

// QuotationItem is a line item of the quotation.
type QuotationItem struct {
	ID                 string  `json:"id" yaml:"id"`
	Name               string  `json:"name" yaml:"name"`
	Scope              string  `json:"scope" yaml:"scope"`
	Unit               string  `json:"unit" yaml:"unit"`
	Quantity           float64 `json:"quantity" yaml:"quantity"`
	UnitPrice          float64 `json:"unitPrice" yaml:"unitPrice"`
	AcceptanceCriteria string  `json:"acceptanceCriteria" yaml:"acceptanceCriteria"`
	Excludes           string  `json:"excludes" yaml:"excludes"`
}

// QuotationItemFields are the fields every quotation item carries.
var QuotationItemFields = []string{
	"name", "scope", "unit", "quantity", "unitPrice", "acceptanceCriteria", "excludes",
}

// RecordID returns the id of the item.
func (i QuotationItem) RecordID() string {
	return i.ID
}

// Amount returns quantity times unit price.
func (i QuotationItem) Amount() float64 {
	return i.Quantity * i.UnitPrice
}

// Fields returns the fields of the item except its id.
func (i QuotationItem) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name":               i.Name,
		"scope":              i.Scope,
		"unit":               i.Unit,
		"quantity":           i.Quantity,
		"unitPrice":          i.UnitPrice,
		"acceptanceCriteria": i.AcceptanceCriteria,
		"excludes":           i.Excludes,
	}
}

// QuotationItemFromFields builds an item from the given fields. Missing or
// mistyped fields are left zero.
func QuotationItemFromFields(id string, fields map[string]interface{}) QuotationItem {
	return QuotationItem{
		ID:                 id,
		Name:               stringOf(fields["name"]),
		Scope:              stringOf(fields["scope"]),
		Unit:               stringOf(fields["unit"]),
		Quantity:           numberOf(fields["quantity"]),
		UnitPrice:          numberOf(fields["unitPrice"]),
		AcceptanceCriteria: stringOf(fields["acceptanceCriteria"]),
		Excludes:           stringOf(fields["excludes"]),
	}
}

// PaymentTerm is a payment milestone of the quotation.
type PaymentTerm struct {
	ID          string  `json:"id" yaml:"id"`
	Time        string  `json:"time" yaml:"time"`
	Milestone   string  `json:"milestone" yaml:"milestone"`
	Percentage  float64 `json:"percentage" yaml:"percentage"`
	Description string  `json:"description" yaml:"description"`
}

// PaymentTermFields are the fields every payment term carries.
var PaymentTermFields = []string{"time", "milestone", "percentage", "description"}

// RecordID returns the id of the term.
func (p PaymentTerm) RecordID() string {
	return p.ID
}

// Fields returns the fields of the term except its id.
func (p PaymentTerm) Fields() map[string]interface{} {
	return map[string]interface{}{
		"time":        p.Time,
		"milestone":   p.Milestone,
		"percentage":  p.Percentage,
		"description": p.Description,
	}
}

// PaymentTermFromFields builds a term from the given fields.
func PaymentTermFromFields(id string, fields map[string]interface{}) PaymentTerm {
	return PaymentTerm{
		ID:          id,
		Time:        stringOf(fields["time"]),
		Milestone:   stringOf(fields["milestone"]),
		Percentage:  numberOf(fields["percentage"]),
		Description: stringOf(fields["description"]),
	}
}

func stringOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func numberOf(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
