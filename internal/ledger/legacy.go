package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lox/blackjackbot/internal/fileutil"
)

// ReadLegacyCSV parses the bot's historical money.csv format: one
// "id,balance,name" row per account, blank lines ignored.
func ReadLegacyCSV(r io.Reader) ([]Account, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var accounts []Account
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read legacy csv: %w", err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("legacy csv record %d: expected id,balance[,name], got %d fields", line, len(record))
		}
		id := strings.TrimSpace(record[0])
		if id == "" {
			return nil, fmt.Errorf("legacy csv record %d: empty id", line)
		}
		balance, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("legacy csv record %d: balance: %w", line, err)
		}
		acct := Account{ID: id, Balance: balance}
		if len(record) > 2 {
			acct.Name = strings.TrimSpace(record[2])
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteLegacyCSV writes accounts in money.csv format.
func WriteLegacyCSV(w io.Writer, accounts []Account) error {
	writer := csv.NewWriter(w)
	for _, a := range accounts {
		if err := writer.Write([]string{a.ID, strconv.FormatInt(a.Balance, 10), a.Name}); err != nil {
			return fmt.Errorf("write legacy csv: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportLegacyFile atomically replaces path with the given accounts.
func ExportLegacyFile(path string, accounts []Account) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteLegacyCSV(w, accounts)
	})
}

// ImportLegacyFile reads every account from a money.csv file.
func ImportLegacyFile(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open legacy csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadLegacyCSV(f)
}
