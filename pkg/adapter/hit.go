// Package adapter holds the wire-format types shared by every external-tool
// adapter: the tabular hit record common to profile search and structure
// search.
package adapter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
)

// Hit is one row of a tabular search result: query id, template id, and the
// alignment statistics common to both profile-profile and structure-structure
// search output.
type Hit struct {
	QueryID       string
	TemplateID    string
	Identity      float64
	AlignLength   int
	Mismatches    int
	GapOpens      int
	QueryStart    int
	QueryEnd      int
	TemplateStart int
	TemplateEnd   int
	EValue        float64
	BitScore      float64
}

// ParseTabularHits reads tab-separated rows in the fixed 12-column order from
// §4.4: query id, template id, identity, alignment length, mismatches, gap
// opens, query start, query end, template start, template end, e-value, bit
// score. Blank lines and lines starting with '#' are skipped.
func ParseTabularHits(r io.Reader) ([]Hit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var hits []Hit
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hit, err := parseHitLine(line)
		if err != nil {
			return nil, dpamerrors.Wrapf(dpamerrors.KindParseError, err, "tabular hits line %d", lineNo)
		}
		hits = append(hits, hit)
	}
	if err := scanner.Err(); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "scan tabular hits")
	}
	return hits, nil
}

func parseHitLine(line string) (Hit, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 12 {
		return Hit{}, fmt.Errorf("expected 12 tab-separated columns, got %d", len(cols))
	}

	intCol := func(idx int) (int, error) {
		v, err := strconv.Atoi(cols[idx])
		if err != nil {
			return 0, fmt.Errorf("column %d: %w", idx, err)
		}
		return v, nil
	}
	floatCol := func(idx int) (float64, error) {
		v, err := strconv.ParseFloat(cols[idx], 64)
		if err != nil {
			return 0, fmt.Errorf("column %d: %w", idx, err)
		}
		return v, nil
	}

	identity, err := floatCol(2)
	if err != nil {
		return Hit{}, err
	}
	alignLength, err := intCol(3)
	if err != nil {
		return Hit{}, err
	}
	mismatches, err := intCol(4)
	if err != nil {
		return Hit{}, err
	}
	gapOpens, err := intCol(5)
	if err != nil {
		return Hit{}, err
	}
	queryStart, err := intCol(6)
	if err != nil {
		return Hit{}, err
	}
	queryEnd, err := intCol(7)
	if err != nil {
		return Hit{}, err
	}
	templateStart, err := intCol(8)
	if err != nil {
		return Hit{}, err
	}
	templateEnd, err := intCol(9)
	if err != nil {
		return Hit{}, err
	}
	evalue, err := floatCol(10)
	if err != nil {
		return Hit{}, err
	}
	bitscore, err := floatCol(11)
	if err != nil {
		return Hit{}, err
	}

	return Hit{
		QueryID:       cols[0],
		TemplateID:    cols[1],
		Identity:      identity,
		AlignLength:   alignLength,
		Mismatches:    mismatches,
		GapOpens:      gapOpens,
		QueryStart:    queryStart,
		QueryEnd:      queryEnd,
		TemplateStart: templateStart,
		TemplateEnd:   templateEnd,
		EValue:        evalue,
		BitScore:      bitscore,
	}, nil
}
