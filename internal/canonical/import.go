package canonical

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/normalize"
)

// importColumns are the canonical_leads columns a CSV backfill provides.
var importColumns = []string{"account_id", "name", "phone", "email", "status", "origin", "created_at", "updated_at"}

// ImportCSV bulk-loads canonical leads from a CSV export via the COPY
// protocol. The header row selects the fields; name, phone, email, status and
// origin are recognized, anything else is skipped. Phones are canonicalized
// with the given country code. Rows without a name and phone are dropped.
//
// Dedup is NOT applied here: backfills target an empty or trusted store, and
// phone uniqueness on canonical leads is a soft invariant anyway.
func ImportCSV(ctx context.Context, pool db.Pool, accountID, countryCode string, r io.Reader) (int64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, eris.Wrap(err, "canonical: read csv header")
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["name"]; !ok {
		if _, ok := idx["phone"]; !ok {
			return 0, eris.New("canonical: csv needs a name or phone column")
		}
	}

	field := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	now := time.Now().UTC()
	var rows [][]any
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, eris.Wrap(err, "canonical: read csv record")
		}

		name := normalize.Name(field(record, "name"))
		phone := normalize.Phone(field(record, "phone"), countryCode)
		if name == "" && phone == "" {
			skipped++
			continue
		}

		rows = append(rows, []any{
			accountID,
			name,
			phone,
			field(record, "email"),
			field(record, "status"),
			normalize.Origin(field(record, "origin")),
			now,
			now,
		})
	}

	n, err := db.CopyFrom(ctx, pool, "canonical_leads", importColumns, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("canonical import complete",
		zap.String("account_id", accountID),
		zap.Int64("imported", n),
		zap.Int("skipped", skipped),
	)
	return n, nil
}
