package audit

import (
	"bytes"
	"encoding/csv"
	"time"
)

var csvHeader = []string{"at", "action", "actor_id", "actor_email", "role", "entity", "entity_id", "client_ip", "description"}

// WriteCSV renders traces as CSV with a header row.
func WriteCSV(rows []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range rows {
		record := []string{
			e.At.UTC().Format(time.RFC3339),
			string(e.Action),
			e.ActorID,
			e.ActorEmail,
			e.Role,
			e.Entity,
			e.EntityID,
			e.ClientIP,
			e.Description,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
