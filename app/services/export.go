package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/storage"
)

var exportHeader = []string{"Id", "Username", "FullName", "Role", "Gender", "Subjects"}

// ExportURLPrefix is where exported files are retrieved.
const ExportURLPrefix = "/Files/Export/"

const exportPrefix = "users_"

// ExportCSV writes every account to a new CSV file in the Exports category
// and returns its stored name.
func (s *AccountService) ExportCSV(ctx context.Context, actor *models.Actor) (string, error) {
	if err := s.policy.Authorize(ctx, actor, ActionExport, Resource{Type: ResourceAccount}); err != nil {
		return "", err
	}
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := WriteAccountsCSV(&buf, accounts); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%d.csv", exportPrefix, time.Now().UnixNano())
	if _, err := s.files.Put(ctx, storage.Exports, name, &buf); err != nil {
		return "", apperr.Storage(err, "store export")
	}
	return name, nil
}

// WriteAccountsCSV writes the export header and one row per account.
func WriteAccountsCSV(w io.Writer, accounts []*models.Account) error {
	if err := writeCSVRow(w, exportHeader); err != nil {
		return err
	}
	for _, acc := range accounts {
		row := []string{
			acc.ID,
			acc.Username,
			acc.FullName,
			string(acc.Role),
			string(acc.Gender),
			strings.Join(acc.SubjectNames(), "; "),
		}
		if err := writeCSVRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, cells []string) error {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = EscapeCSV(c)
	}
	_, err := io.WriteString(w, strings.Join(escaped, ",")+"\r\n")
	return err
}

// EscapeCSV quotes a cell when a spreadsheet could read it as a formula or
// when it holds a separator, quote or line break. Quotes are doubled.
func EscapeCSV(v string) string {
	quote := strings.ContainsAny(v, ",\"\r\n")
	if v != "" {
		switch v[0] {
		case '=', '+', '-', '@', '\t', '\r':
			quote = true
		}
	}
	if !quote {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
