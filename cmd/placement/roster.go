package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/campus-careers/placement-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// CSV ROSTERS
// The first row of each file is a header and is skipped.
//
//	students: id,name,major,year,email
//	staff:    id,name,role,department,email
// ══════════════════════════════════════════════════════════════════════════════

const rosterColumns = 5

func readStudents(r io.Reader) ([]command.StudentRecord, error) {
	rows, err := readRoster(r)
	if err != nil {
		return nil, err
	}
	out := make([]command.StudentRecord, 0, len(rows))
	for _, row := range rows {
		year, err := strconv.Atoi(row.fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: year %q is not a number", row.line, row.fields[3])
		}
		out = append(out, command.StudentRecord{
			ID:          row.fields[0],
			Name:        row.fields[1],
			Major:       row.fields[2],
			YearOfStudy: year,
			Email:       row.fields[4],
		})
	}
	return out, nil
}

func readStaff(r io.Reader) ([]command.StaffRecord, error) {
	rows, err := readRoster(r)
	if err != nil {
		return nil, err
	}
	out := make([]command.StaffRecord, 0, len(rows))
	for _, row := range rows {
		// Column 2 carries a job title that the account model has no use for.
		out = append(out, command.StaffRecord{
			ID:         row.fields[0],
			Name:       row.fields[1],
			Department: row.fields[3],
			Email:      row.fields[4],
		})
	}
	return out, nil
}

type rosterRow struct {
	line   int
	fields []string
}

func readRoster(r io.Reader) ([]rosterRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = rosterColumns
	cr.TrimLeadingSpace = true

	var rows []rosterRow
	for first := true; ; first = false {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			continue
		}
		line, _ := cr.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, rosterRow{line: line, fields: record})
	}
}
