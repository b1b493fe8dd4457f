package fixtures

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/omniretail/omnidesk/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

// Load inserts the store's tables in one transaction. The schema must already
// exist; run the store's migrations first.
func Load(ctx context.Context, db *sql.DB, storeName string, d Dataset) (int, error) {
	tables, err := d.Tables(storeName)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, table := range tables {
		stmt, err := tx.PrepareContext(ctx, insertSQL(table))
		if err != nil {
			return 0, fmt.Errorf("prepare insert into %s: %w", table.Name, err)
		}
		for _, row := range table.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = stmt.Close()
				return 0, fmt.Errorf("insert into %s: %w", table.Name, err)
			}
			inserted++
		}
		if err := stmt.Close(); err != nil {
			return 0, fmt.Errorf("close insert into %s: %w", table.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s fixtures: %w", storeName, err)
	}
	return inserted, nil
}

func insertSQL(table TableData) string {
	placeholders := make([]string, len(table.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.Name, strings.Join(table.Columns, ", "), strings.Join(placeholders, ", "))
}

// ExportParquet writes every table of storeName to <prefix>/<table>.parquet.
func ExportParquet(ctx context.Context, objects storage.ObjectStore, prefix, storeName string, d Dataset) ([]storage.ObjectInfo, error) {
	encoded, err := encodeStore(storeName, d)
	if err != nil {
		return nil, err
	}
	tables, err := d.Tables(storeName)
	if err != nil {
		return nil, err
	}

	infos := make([]storage.ObjectInfo, 0, len(tables))
	for _, table := range tables {
		key, err := storage.BuildTableObjectPath(prefix, table.Name)
		if err != nil {
			return nil, err
		}
		body := encoded[table.Name]
		info, err := objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: parquetContentType})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func encodeStore(storeName string, d Dataset) (map[string][]byte, error) {
	out := map[string][]byte{}
	var err error
	put := func(name string, encode func() ([]byte, error)) {
		if err != nil {
			return
		}
		var body []byte
		body, err = encode()
		if err != nil {
			err = fmt.Errorf("encode %s: %w", name, err)
			return
		}
		out[name] = body
	}

	switch storeName {
	case "ShopCore":
		put("Users", func() ([]byte, error) { return encodeParquet(d.Users) })
		put("Products", func() ([]byte, error) { return encodeParquet(d.Products) })
		put("Orders", func() ([]byte, error) { return encodeParquet(d.Orders) })
	case "ShipStream":
		put("Shipments", func() ([]byte, error) { return encodeParquet(d.Shipments) })
		put("Warehouses", func() ([]byte, error) { return encodeParquet(d.Warehouses) })
		put("TrackingEvents", func() ([]byte, error) { return encodeParquet(d.TrackingEvents) })
	case "PayGuard":
		put("Wallets", func() ([]byte, error) { return encodeParquet(d.Wallets) })
		put("Transactions", func() ([]byte, error) { return encodeParquet(d.Transactions) })
		put("PaymentMethods", func() ([]byte, error) { return encodeParquet(d.PaymentMethods) })
	case "CareDesk":
		put("Tickets", func() ([]byte, error) { return encodeParquet(d.Tickets) })
		put("TicketMessages", func() ([]byte, error) { return encodeParquet(d.Messages) })
		put("SatisfactionSurveys", func() ([]byte, error) { return encodeParquet(d.Surveys) })
	default:
		return nil, fmt.Errorf("no fixtures for store %q", storeName)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeParquet[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
