// Package models defines data structures for Kakei
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexFloat64 handles JSON values that may be either a number or a string.
type FlexFloat64 float64

func (f *FlexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// dateLayouts are the accepted spreadsheet export formats, timezone dropped.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// FlexTime handles JSON date values in the common export formats.
type FlexTime time.Time

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = FlexTime(time.Time{})
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot unmarshal %s into date", string(data))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*t = FlexTime(time.Time{})
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = FlexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format("2006-01-02"))
}

// Time returns the underlying time value.
func (t FlexTime) Time() time.Time {
	return time.Time(t)
}

// ExpenseRow is one inbound transaction row. Field names match the
// spreadsheet export the client sends.
type ExpenseRow struct {
	Date     FlexTime    `json:"Date"`
	Expense  FlexFloat64 `json:"Expense"`
	Category string      `json:"category"`
	Remarks  string      `json:"remarks"`
}

// ExpenseRecord is one normalized transaction.
type ExpenseRecord struct {
	Date          time.Time `json:"date"`
	Expense       float64   `json:"expense"`
	Category      string    `json:"category"`       // raw label, lowercased and trimmed
	Remarks       string    `json:"remarks,omitempty"`
	MajorCategory string    `json:"major_category"` // coarse bucket derived via CategoryMap
}

// Dataset is the request-scoped, ordered expense table. It is materialized
// fresh for each request and never shared.
type Dataset struct {
	Records  []ExpenseRecord
	Currency string // display symbol prefixed to amounts, e.g. "¥"
}

// Major category buckets.
const (
	MajorFood          = "Food"
	MajorHousing       = "Housing and Utilities"
	MajorHousehold     = "Household and Clothing"
	MajorElectronics   = "Electronics and Furniture"
	MajorFitness       = "Fitness"
	MajorTransport     = "Transportation"
	MajorGifts         = "Souvenirs/Gifts/Treats"
	MajorMiscellaneous = "Miscellaneous"
	MajorEntertainment = "Entertainment"
	MajorEducation     = "Education"
)

// CategoryMap resolves a lowercased raw category to its major bucket.
// Unknown non-empty labels fall back to Miscellaneous; empty and the literal
// "nan" map to an empty major category instead.
var CategoryMap = map[string]string{
	// Food
	"grocery": MajorFood, "snacks": MajorFood, "cafe": MajorFood,
	"coffee": MajorFood, "café": MajorFood, "bento": MajorFood, "beverage": MajorFood,
	"eating from combini": MajorFood, "eating out": MajorFood, "eating with friend": MajorFood,

	// Housing
	"housing": MajorHousing, "utility": MajorHousing,
	"internet bill": MajorHousing, "electricity bill": MajorHousing,
	"gas bill": MajorHousing, "water & sewage bill": MajorHousing,
	"phone bill": MajorHousing, "water": MajorHousing,

	// Household & Clothing
	"clothing": MajorHousehold, "household": MajorHousehold,
	"furniture": MajorElectronics, "electronics": MajorElectronics,

	// Fitness
	"supplements": MajorFitness, "shoes": MajorFitness, "sports event": MajorFitness,
	"sports watch": MajorFitness, "sports clothing": MajorFitness, "sports rental": MajorFitness,
	"gym": MajorFitness, "sports equipment": MajorFitness, "basketball game": MajorFitness,
	"footbal game": MajorFitness, "futsal game": MajorFitness,

	// Transportation
	"commute": MajorTransport, "ride share": MajorTransport, "tokyo metro": MajorTransport,
	"flight tickets": MajorTransport, "cable car": MajorTransport, "bus": MajorTransport,
	"shinkansen": MajorTransport, "car rental": MajorTransport,
	"taxi": MajorTransport, "stay": MajorTransport,

	// Gifts & Treats
	"souvenirs": MajorGifts, "treat": MajorGifts,
	"gift": MajorGifts,

	// Misc
	"medicines": MajorMiscellaneous, "personal care": MajorMiscellaneous, "misc": MajorMiscellaneous,
	"books": MajorMiscellaneous, "help": MajorMiscellaneous,
	"charity": MajorMiscellaneous, "donation": MajorMiscellaneous, "entrance fees": MajorMiscellaneous,
	"park entrance fees": MajorMiscellaneous, "healthcare": MajorMiscellaneous,

	// Entertainment
	"entertainment": MajorEntertainment, "nomikai": MajorEntertainment,
	"activities": MajorEntertainment, "arcades & karaoke": MajorEntertainment,
	"events & venues": MajorEntertainment,

	// Education
	"education": MajorEducation,
}

// NormalizeCategory lowercases and trims a raw category label and resolves
// its major bucket. Empty and "nan" labels carry no major category.
func NormalizeCategory(raw string) (category, major string) {
	category = strings.ToLower(strings.TrimSpace(raw))
	if category == "" || category == "nan" {
		return category, ""
	}
	if m, ok := CategoryMap[category]; ok {
		return category, m
	}
	return category, MajorMiscellaneous
}

// NewDataset materializes a normalized dataset from inbound rows. Rows
// without a category field get empty category and major-category values;
// this never fails.
func NewDataset(rows []ExpenseRow, currency string) *Dataset {
	if currency == "" {
		currency = "¥"
	}
	records := make([]ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		category, major := NormalizeCategory(row.Category)
		records = append(records, ExpenseRecord{
			Date:          row.Date.Time(),
			Expense:       float64(row.Expense),
			Category:      category,
			Remarks:       row.Remarks,
			MajorCategory: major,
		})
	}
	return &Dataset{Records: records, Currency: currency}
}

// Normalize re-derives every record's category and major bucket. Running it
// on an already-normalized dataset is a no-op.
func (d *Dataset) Normalize() {
	for i := range d.Records {
		d.Records[i].Category, d.Records[i].MajorCategory = NormalizeCategory(d.Records[i].Category)
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}
