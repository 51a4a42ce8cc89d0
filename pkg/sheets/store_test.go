package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeSpreadsheet serves the subset of the Sheets v4 API the store uses.
type fakeSpreadsheet struct {
	mu      sync.Mutex
	nextID  int64
	ids     map[string]int64
	grids   map[string][][]any
	deletes int
}

func newFakeSpreadsheet() *fakeSpreadsheet {
	return &fakeSpreadsheet{
		nextID: 100,
		ids:    map[string]int64{"Sheet1": 0},
		grids:  map[string][][]any{"Sheet1": nil},
	}
}

func (f *fakeSpreadsheet) titleByID(id int64) string {
	for title, sid := range f.ids {
		if sid == id {
			return title
		}
	}
	return ""
}

func (f *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rest, _ := strings.Cut(path, "/")

	switch {
	case r.Method == http.MethodGet && rest == "" && !strings.Contains(id, ":"):
		var sheets []map[string]any
		for title, sid := range f.ids {
			sheets = append(sheets, map[string]any{
				"properties": map[string]any{"sheetId": sid, "title": title},
			})
		}
		writeJSON(w, map[string]any{"spreadsheetId": id, "sheets": sheets})

	case r.Method == http.MethodPost && strings.HasSuffix(id, ":batchUpdate"):
		var req struct {
			Requests []struct {
				AddSheet *struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
				DeleteDimension *struct {
					Range struct {
						SheetID    int64  `json:"sheetId"`
						StartIndex int64  `json:"startIndex"`
						EndIndex   int64  `json:"endIndex"`
						Dimension  string `json:"dimension"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var replies []map[string]any
		for _, rq := range req.Requests {
			switch {
			case rq.AddSheet != nil:
				title := rq.AddSheet.Properties.Title
				f.ids[title] = f.nextID
				f.grids[title] = nil
				replies = append(replies, map[string]any{
					"addSheet": map[string]any{"properties": map[string]any{"sheetId": f.nextID, "title": title}},
				})
				f.nextID++
			case rq.DeleteDimension != nil:
				rg := rq.DeleteDimension.Range
				title := f.titleByID(rg.SheetID)
				grid := f.grids[title]
				if rg.Dimension != "ROWS" || rg.StartIndex >= int64(len(grid)) {
					http.Error(w, "bad range", http.StatusBadRequest)
					return
				}
				f.grids[title] = append(grid[:rg.StartIndex], grid[rg.EndIndex:]...)
				f.deletes++
				replies = append(replies, map[string]any{})
			}
		}
		writeJSON(w, map[string]any{"replies": replies})

	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		switch r.Method {
		case http.MethodPost:
			title, _, _ := strings.Cut(strings.TrimSuffix(rng, ":append"), "!")
			var vr struct {
				Values [][]any `json:"values"`
			}
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.grids[title] = append(f.grids[title], vr.Values...)
			writeJSON(w, map[string]any{"spreadsheetId": id})

		case http.MethodGet:
			// ranges are always "<title>!A2:<col>"
			title, _, _ := strings.Cut(rng, "!")
			grid := f.grids[title]
			var values [][]any
			if len(grid) > 1 {
				values = grid[1:]
			}
			writeJSON(w, map[string]any{"range": rng, "values": values})

		case http.MethodPut:
			title, cellRef, _ := strings.Cut(rng, "!")
			col := int(cellRef[0] - 'A')
			rowNum, _ := strconv.Atoi(cellRef[1:])
			var vr struct {
				Values [][]any `json:"values"`
			}
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			row := f.grids[title][rowNum-1]
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = vr.Values[0][0]
			f.grids[title][rowNum-1] = row
			writeJSON(w, map[string]any{"updatedCells": 1})
		}

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T) (*Store, *fakeSpreadsheet) {
	t.Helper()

	fake := newFakeSpreadsheet()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store, fake
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestStoreCreatesWorksheetsWithHeaders(t *testing.T) {
	store, fake := newTestStore(t)

	rows, err := store.Rows(context.Background(), ledger.SheetTransactions)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.Contains(t, fake.grids, "transactions")
	require.Contains(t, fake.grids, "lending")
	require.Len(t, fake.grids["transactions"], 1)
	assert.Equal(t, "date", fake.grids["transactions"][0][0])
	assert.Equal(t, "remaining", fake.grids["lending"][0][ledger.LendColRemaining])
}

func TestStoreAppendUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	require.NoError(t, store.AppendRow(ctx, ledger.SheetLending,
		[]string{"01/03/2026", "John", "100", "lent", "", "", "", "100"}))
	require.NoError(t, store.AppendRow(ctx, ledger.SheetLending,
		[]string{"02/03/2026", "Asha", "200", "lent", "", "", "", "200"}))

	require.NoError(t, store.UpdateCell(ctx, ledger.SheetLending, 1, ledger.LendColRemaining, "50"))

	rows, err := store.Rows(ctx, ledger.SheetLending)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "John", rows[0][ledger.LendColPerson])
	assert.Equal(t, "50", rows[1][ledger.LendColRemaining])

	err = store.UpdateCell(ctx, ledger.SheetLending, 5, ledger.LendColStatus, "returned")
	assert.ErrorIs(t, err, ledger.ErrRowOutOfRange)

	require.NoError(t, store.DeleteLastRow(ctx, ledger.SheetLending))
	rows, err = store.Rows(ctx, ledger.SheetLending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "John", rows[0][ledger.LendColPerson])
	assert.Equal(t, 1, fake.deletes)

	// header survives
	assert.Equal(t, "date", fake.grids["lending"][0][0])
}

func TestStoreDeleteFromEmptySheet(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.DeleteLastRow(context.Background(), ledger.SheetTransactions)
	assert.ErrorIs(t, err, ledger.ErrNoRows)
}

func TestStoreRowsArePaddedToHeaderWidth(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.AppendRow(ctx, ledger.SheetTransactions,
		[]string{"01/03/2026", "add", "total", "100", "salary", "100", "0"}))

	rows, err := store.Rows(ctx, ledger.SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(ledger.TransactionHeader))
	assert.Equal(t, "", rows[0][ledger.TxnColMerchant])
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{0, "A"},
		{8, "I"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnLetter(tt.col))
	}
}
