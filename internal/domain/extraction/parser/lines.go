package parser

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction/normalizer"
)

// leadingDate matches the date token that opens a statement transaction line
var leadingDate = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{1,2} [A-Za-z]{3,9} \d{4}|[A-Za-z]{3,9} \d{1,2},? \d{4})\b`)

// amountToken matches a monetary value, optionally with currency symbol,
// parentheses, sign or CR/DR suffix
var amountToken = regexp.MustCompile(
	`^\(?[-+]?[$€£]?\s?-?\d[\d.,]*(?:\s?(?:CR|DR|cr|dr))?\)?-?$`)

// inferLines runs transaction inference over free-form statement text rows.
// A row qualifies when it starts with a date and ends with at least one
// monetary token; with two trailing tokens the last is the running balance.
func inferLines(lines []string) *Result {
	result := &Result{
		AccountNumber: normalizer.DetectAccountNumber(strings.Join(headSlice(lines, 20), "\n")),
	}

	type candidate struct {
		lineNum int
		dateStr string
		desc    string
		amtStr  string
	}

	var candidates []candidate
	var dateSamples, amountSamples []string

	for i, line := range lines {
		dateMatch := leadingDate.FindString(line)
		if dateMatch == "" {
			continue
		}

		rest := strings.TrimSpace(line[len(dateMatch):])
		tokens := strings.Fields(rest)
		if len(tokens) == 0 {
			continue
		}

		// Walk trailing monetary tokens; statements print amount then
		// balance, so with two the first is the amount.
		trailing := 0
		for trailing < len(tokens) && trailing < 2 {
			if !amountToken.MatchString(tokens[len(tokens)-1-trailing]) {
				break
			}
			trailing++
		}
		if trailing == 0 {
			continue
		}

		amtIdx := len(tokens) - trailing
		desc := strings.Join(tokens[:amtIdx], " ")
		if desc == "" {
			continue
		}

		candidates = append(candidates, candidate{
			lineNum: i + 1,
			dateStr: dateMatch,
			desc:    desc,
			amtStr:  tokens[amtIdx],
		})
		dateSamples = append(dateSamples, dateMatch)
		amountSamples = append(amountSamples, tokens[amtIdx])
	}

	dateFormat := normalizer.DetectDateFormat(dateSamples)
	european, _ := normalizer.DetectEuropeanFormat(amountSamples)

	for _, c := range candidates {
		date, err := normalizer.ParseDate(c.dateStr, dateFormat)
		if err != nil {
			result.Errors = append(result.Errors, LineError{Line: c.lineNum, Message: err.Error()})
			continue
		}
		amount, err := normalizer.ParseAmount(c.amtStr, european)
		if err != nil {
			result.Errors = append(result.Errors, LineError{Line: c.lineNum, Message: err.Error()})
			continue
		}
		desc := normalizer.CleanDescription(c.desc)
		if desc == "" {
			result.Errors = append(result.Errors, LineError{Line: c.lineNum, Message: "empty description"})
			continue
		}
		result.Lines = append(result.Lines, Line{Date: date, Amount: amount, Description: desc})
	}

	return result
}

func headSlice(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}
