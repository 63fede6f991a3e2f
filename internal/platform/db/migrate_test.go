package db

import (
	"strings"
	"testing"
)

func TestSchemaDeclaresTables(t *testing.T) {
	ddl := Schema()
	for _, table := range []string{
		"users", "user_roles", "audit_traces",
		"area_directivos", "area_almaceneros", "local_responsables", "medio_responsables",
	} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema missing table %s", table)
		}
	}
	if !strings.Contains(ddl, "UNIQUE (email, role)") {
		t.Fatal("user_roles must be unique per email and role")
	}
}
