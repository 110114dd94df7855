package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/bytedance/sonic"

	"todo-api/domain"
)

func TestDecodeTaskEntity(t *testing.T) {
	data := []byte(`{"odata.etag":"W/\"x\"","PartitionKey":"tasks","RowKey":"t1","Timestamp":"2024-01-01T00:00:01Z","Text":"write code","Completed":true,"Order":4,"CreatedAt":"2024-01-01T00:00:00.5Z"}`)
	doc, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ID != "t1" || doc.Text != "write code" || !doc.Completed || doc.Order != 4 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	task, err := doc.Task()
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if task.CreatedAt.Nanosecond() != 500000000 {
		t.Fatalf("unexpected created_at: %v", task.CreatedAt)
	}
}

func TestDecodeTaskEntityMissingOrder(t *testing.T) {
	doc, err := decodeTaskEntity([]byte(`{"PartitionKey":"tasks","RowKey":"t1","Text":"x","CreatedAt":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Order != 0 || doc.Completed {
		t.Fatalf("missing fields should default: %+v", doc)
	}
}

func TestEncodeTaskEntity(t *testing.T) {
	payload, err := encodeTaskEntity(domain.TaskDocument{ID: "t1", Text: "x", Order: 0, CreatedAt: "2024-01-01T02:00:00+02:00"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := sonic.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["PartitionKey"] != tasksPartition || got["RowKey"] != "t1" {
		t.Fatalf("unexpected keys: %v", got)
	}
	if got["Order"] != float64(0) || got["Order@odata.type"] != edmInt32 {
		t.Fatalf("order must be written with its type: %v", got)
	}
	if got["CreatedAt"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("created_at not normalized to UTC: %v", got["CreatedAt"])
	}
}

func TestEncodeTaskPatchOnlyProvidedFields(t *testing.T) {
	done := false
	payload, err := encodeTaskPatch("t1", domain.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(payload)
	if !strings.Contains(s, `"Completed":false`) {
		t.Fatalf("explicit false dropped: %s", s)
	}
	for _, absent := range []string{"Text", `"Order"`, "odata.type"} {
		if strings.Contains(s, absent) {
			t.Fatalf("unexpected %s in patch %s", absent, s)
		}
	}

	order := 2
	payload, err = encodeTaskPatch("t1", domain.TaskPatch{Order: &order})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(payload), `"Order@odata.type":"Edm.Int32"`) {
		t.Fatalf("order type missing: %s", payload)
	}
}

func TestValidRowKey(t *testing.T) {
	tests := map[string]bool{
		"3f2b8a4e-9a0c-4c59-9a3e-7d7d2a6c2f10": true,
		"plain":                                true,
		"":                                     false,
		"a/b":                                  false,
		`a\b`:                                  false,
		"a#b":                                  false,
		"a?b":                                  false,
		"tab\there":                            false,
		strings.Repeat("x", 1025):              false,
	}
	for key, want := range tests {
		if got := validRowKey(key); got != want {
			t.Fatalf("validRowKey(%q)=%v, want %v", key, got, want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := &azcore.ResponseError{StatusCode: http.StatusNotFound}
	if !isNotFound(fmt.Errorf("wrapped: %w", notFound)) {
		t.Fatalf("wrapped 404 not detected")
	}
	if isNotFound(&azcore.ResponseError{StatusCode: http.StatusConflict}) {
		t.Fatalf("409 reported as not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatalf("plain error reported as not found")
	}
}
