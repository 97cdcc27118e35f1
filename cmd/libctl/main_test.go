package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appborrow "github.com/xiebiao/library/internal/application/borrow"
)

func TestRootCommand_Tree(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"migrate"},
		{"admin", "create"},
		{"admin", "promote"},
		{"titles", "recompute"},
		{"borrows", "unreconciled"},
		{"borrows", "repair"},
		{"outbox", "flush"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestTableOutput(t *testing.T) {
	paidAt := "2026-03-12 10:00:00"
	list := []*appborrow.BorrowResponse{{
		ID:            12,
		BorrowerEmail: "an@example.com",
		TitleName:     "Mat Biec",
		CopyCode:      "9786041234567-0001",
		PaymentAmount: 60000,
		PaymentStatus: "paid",
		PaidAt:        &paidAt,
	}}

	var buf bytes.Buffer
	e := &env{out: &buf}
	require.NoError(t, e.table(list, borrowHeader, borrowRows(list)))
	out := buf.String()
	assert.Contains(t, out, "BORROWER")
	assert.Contains(t, out, "9786041234567-0001")
	assert.Contains(t, out, "60000")
	// 未归还显示占位符
	assert.Contains(t, out, "-")

	buf.Reset()
	e.asJSON = true
	require.NoError(t, e.table(list, borrowHeader, borrowRows(list)))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Mat Biec", decoded[0]["title"])
}
