package curator_test

import (
	"testing"

	"curator-go/internal/curator"
	"curator-go/internal/model"
)

func scanFixture() []model.ListWithItems {
	return []model.ListWithItems{
		{
			Header: model.ListHeader{UUID: "u1", Name: "Dragon Hoard"},
			Items: []model.ListItem{
				{ListUUID: "u1", EntityID: "e1", Name: "Gold Pile"},
				{ListUUID: "u1", EntityID: "e2", Name: "Baby Dragon"},
			},
		},
		{
			Header: model.ListHeader{UUID: "u2", Name: "Castles"},
			Items: []model.ListItem{
				{ListUUID: "u2", EntityID: "e3", Name: "Dragon Gate", Description: "stone arch"},
			},
		},
	}
}

// key flattens a scan result for set comparison.
func key(r curator.ScanResult) string {
	if r.Item == nil {
		return "h:" + r.Header.UUID
	}
	return "i:" + r.Header.UUID + "/" + r.Item.EntityID
}

func TestScanStrategies(t *testing.T) {
	t.Run("both strategies find the same results", func(t *testing.T) {
		lists := scanFixture()

		bfs := curator.ScanBreadthFirst(lists, "dragon")
		dfs := curator.ScanDepthFirst(lists, "dragon")

		if len(bfs) != len(dfs) {
			t.Fatalf("breadth found %d, depth found %d", len(bfs), len(dfs))
		}

		seen := map[string]bool{}
		for _, r := range bfs {
			seen[key(r)] = true
		}
		for _, r := range dfs {
			if !seen[key(r)] {
				t.Errorf("depth-first result %s missing from breadth-first", key(r))
			}
		}
	})

	t.Run("breadth-first yields all headers before any item", func(t *testing.T) {
		results := curator.ScanBreadthFirst(scanFixture(), "dragon")

		sawItem := false
		for _, r := range results {
			if r.Item != nil {
				sawItem = true
			} else if sawItem {
				t.Fatal("header yielded after an item in breadth-first order")
			}
		}
	})

	t.Run("depth-first yields a header immediately before its items", func(t *testing.T) {
		results := curator.ScanDepthFirst(scanFixture(), "dragon")

		// Expect: u1 header, u1 item e2, then u2 item e3.
		want := []string{"h:u1", "i:u1/e2", "i:u2/e3"}
		if len(results) != len(want) {
			t.Fatalf("len(results) = %d, want %d", len(results), len(want))
		}
		for i, r := range results {
			if key(r) != want[i] {
				t.Errorf("result %d = %s, want %s", i, key(r), want[i])
			}
		}
	})

	t.Run("matching is case-insensitive and matches descriptions", func(t *testing.T) {
		results := curator.ScanDepthFirst(scanFixture(), "STONE")
		if len(results) != 1 || key(results[0]) != "i:u2/e3" {
			t.Errorf("results = %v, want the stone arch item", results)
		}
	})

	t.Run("no matches yields empty results", func(t *testing.T) {
		if results := curator.ScanBreadthFirst(scanFixture(), "zeppelin"); len(results) != 0 {
			t.Errorf("len(results) = %d, want 0", len(results))
		}
	})
}
