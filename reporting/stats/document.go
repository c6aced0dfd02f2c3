// Package stats computes reporting statistics from published record set
// documents. It deliberately never reads live entry rows: published numbers
// are frozen at publish time, and all historical aggregation folds over the
// snapshot documents in memory.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryValue is one attribute cell of a snapshot, e.g. record.Gender["On
// air"].entries["Women"]. Percent is relative to the person type's total for
// that category at publish time.
type EntryValue struct {
	Percent      float64 `json:"percent"`
	Count        int     `json:"count"`
	TargetMember bool    `json:"targetMember"`
}

type PersonTypeEntries struct {
	Entries map[string]EntryValue `json:"entries"`
}

// Document is the typed shape of PublishedRecordSet.Document: category ->
// person type -> attribute -> value.
type Document struct {
	DatasetGroup               string                                  `json:"datasetGroup"`
	ReportingPeriodDescription string                                  `json:"reportingPeriodDescription"`
	Begin                      time.Time                               `json:"begin"`
	End                        time.Time                               `json:"end"`
	Record                     map[string]map[string]PersonTypeEntries `json:"record"`
}

func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("error parsing published record set document: %w", err)
	}
	return doc, nil
}

func (d *Document) categoryGroup(category string) (map[string]PersonTypeEntries, bool) {
	for name, group := range d.Record {
		if strings.EqualFold(name, category) {
			return group, true
		}
	}
	return nil, false
}

// TargetMemberPercent sums the percentages of every person-type/attribute
// combination counted as "in target" for the category.
func (d *Document) TargetMemberPercent(category string) float64 {
	group, ok := d.categoryGroup(category)
	if !ok {
		return 0
	}

	sum := 0.0
	for _, entries := range group {
		for _, value := range entries.Entries {
			if value.TargetMember {
				sum += value.Percent
			}
		}
	}
	return sum
}

// HasRecordedData reports whether anything nonzero was recorded for the
// category. An absent category and an all-zero percent set both count as
// "nothing recorded" and are excluded from aggregates, never treated as a
// pass or a fail.
func (d *Document) HasRecordedData(category string) bool {
	group, ok := d.categoryGroup(category)
	if !ok {
		return false
	}
	for _, entries := range group {
		for _, value := range entries.Entries {
			if value.Percent != 0 {
				return true
			}
		}
	}
	return false
}

// BuildDocument freezes a record's entries into a snapshot document for the
// given reporting period. Percentages are computed per category and person
// type; target membership comes from the owning program's target tracks.
func BuildDocument(txn *gorm.DB, dataset schema.Dataset, recordId uuid.UUID, begin, end time.Time, description string) (Document, error) {
	var record schema.Record
	result := txn.
		Preload("Entries").
		Preload("Entries.CategoryValue").
		Preload("Entries.CategoryValue.Category").
		Preload("Entries.PersonType").
		First(&record, "id = ?", recordId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Document{}, schema.ErrRecordNotFound
		}
		slog.Error("sql error loading record for publication", "record_id", recordId, "error", result.Error)
		return Document{}, schema.ErrDbAccessFailed
	}

	program, err := schema.GetProgram(dataset.ProgramId, txn)
	if err != nil {
		return Document{}, err
	}

	targetMembers := map[uuid.UUID]bool{}
	for _, target := range program.Targets {
		for _, track := range target.Tracks {
			targetMembers[track.CategoryValueId] = track.TargetMember
		}
	}

	type cell struct {
		category   string
		personType string
	}
	totals := map[cell]int{}
	for _, entry := range record.Entries {
		if entry.CategoryValue == nil || entry.CategoryValue.Category == nil || entry.PersonType == nil {
			return Document{}, fmt.Errorf("record %v entry %v is missing reference data", record.Id, entry.Id)
		}
		key := cell{category: entry.CategoryValue.Category.Name, personType: entry.PersonType.Name}
		totals[key] += entry.Count
	}

	doc := Document{
		DatasetGroup:               dataset.Name,
		ReportingPeriodDescription: description,
		Begin:                      begin,
		End:                        end,
		Record:                     map[string]map[string]PersonTypeEntries{},
	}

	for _, entry := range record.Entries {
		category := entry.CategoryValue.Category.Name
		personType := entry.PersonType.Name

		if doc.Record[category] == nil {
			doc.Record[category] = map[string]PersonTypeEntries{}
		}
		if doc.Record[category][personType].Entries == nil {
			doc.Record[category][personType] = PersonTypeEntries{Entries: map[string]EntryValue{}}
		}

		percent := 0.0
		if total := totals[cell{category: category, personType: personType}]; total > 0 {
			percent = 100 * float64(entry.Count) / float64(total)
		}

		doc.Record[category][personType].Entries[entry.CategoryValue.Name] = EntryValue{
			Percent:      percent,
			Count:        entry.Count,
			TargetMember: targetMembers[entry.CategoryValueId],
		}
	}

	return doc, nil
}
