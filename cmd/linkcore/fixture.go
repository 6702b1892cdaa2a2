package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/starfinanz/realm-core/internal/memstore"
	"github.com/starfinanz/realm-core/internal/sqlitestore"
	"github.com/starfinanz/realm-core/pkg/group"
	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// fixture is the on-disk JSON shape the run command consumes: enough to
// build a small Group, seed it with links, and perform one mutation.
type fixture struct {
	Tables  []fixtureTable  `json:"tables"`
	Columns []fixtureColumn `json:"columns"`
	Links   []fixtureLink   `json:"links"`
	Lists   []fixtureList   `json:"lists"`
	Op      fixtureOp       `json:"operation"`
}

type fixtureTable struct {
	Rows int `json:"rows"`
}

type fixtureColumn struct {
	Kind     string `json:"kind"` // "link" or "list"
	Table    int    `json:"table"`
	Target   int    `json:"target"`
	Strength string `json:"strength"` // "strong" or "weak"
}

type fixtureLink struct {
	Column int `json:"column"`
	Table  int `json:"table"`
	Row    int `json:"row"`
	Target int `json:"target"`
}

type fixtureList struct {
	Column  int   `json:"column"`
	Table   int   `json:"table"`
	Row     int   `json:"row"`
	Targets []int `json:"targets"`
}

type fixtureOp struct {
	Kind   string `json:"kind"` // "remove_row", "set_link", "nullify_link"
	Table  int    `json:"table"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Target int    `json:"target"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func parseStrength(s string) linkcore.LinkStrength {
	if s == "strong" {
		return linkcore.Strong
	}
	return linkcore.Weak
}

// buildGroup constructs an Allocator per cfg.Backend and assembles the
// Group, tables, columns, links, and lists the fixture describes.
func buildGroup(cfg linkcore.Config, f *fixture) (*group.Group, []*group.Table, func() error, error) {
	var alloc linkcore.Allocator
	closeFn := func() error { return nil }

	switch cfg.Backend {
	case linkcore.BackendSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		alloc = store
		closeFn = store.Close
	default:
		alloc = memstore.New()
	}

	g := group.New(alloc, cfg, nil, nil)

	tables := make([]*group.Table, len(f.Tables))
	for i, ft := range f.Tables {
		t := g.AddTable()
		if ft.Rows > 0 {
			if err := t.InsertRows(0, ft.Rows); err != nil {
				return nil, nil, nil, fmt.Errorf("insert rows for table %d: %w", i, err)
			}
		}
		tables[i] = t
	}

	for i, fc := range f.Columns {
		strength := parseStrength(fc.Strength)
		switch fc.Kind {
		case "list":
			if _, err := tables[fc.Table].AddLinkListColumn(tables[fc.Target], strength); err != nil {
				return nil, nil, nil, fmt.Errorf("add list column %d: %w", i, err)
			}
		default:
			if _, err := tables[fc.Table].AddLinkColumn(tables[fc.Target], strength); err != nil {
				return nil, nil, nil, fmt.Errorf("add link column %d: %w", i, err)
			}
		}
	}

	for _, fl := range f.Links {
		if _, _, err := tables[fl.Table].SetLink(fl.Column, linkcore.RowIndex(fl.Row), linkcore.RowIndex(fl.Target)); err != nil {
			return nil, nil, nil, fmt.Errorf("set link: %w", err)
		}
	}

	for _, fl := range f.Lists {
		list, err := tables[fl.Table].LinkList(fl.Column, linkcore.RowIndex(fl.Row))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("get link list: %w", err)
		}
		for _, target := range fl.Targets {
			if err := list.Add(linkcore.RowIndex(target)); err != nil {
				return nil, nil, nil, fmt.Errorf("add to link list: %w", err)
			}
		}
	}

	return g, tables, closeFn, nil
}

// applyOp performs the fixture's requested mutation and returns the
// resulting cascade notification.
func applyOp(tables []*group.Table, op fixtureOp) (linkcore.CascadeNotification, error) {
	t := tables[op.Table]
	switch op.Kind {
	case "remove_row":
		return t.RemoveRowRecursive(linkcore.RowIndex(op.Row))
	case "set_link":
		_, n, err := t.SetLink(op.Column, linkcore.RowIndex(op.Row), linkcore.RowIndex(op.Target))
		return n, err
	case "nullify_link":
		return t.NullifyLink(op.Column, linkcore.RowIndex(op.Row))
	default:
		return linkcore.CascadeNotification{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}
