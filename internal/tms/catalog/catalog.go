// Package catalog keeps test cases in a YAML file, for teams whose test management
// lives in the repository.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"tmssync/internal/config"
	"tmssync/internal/tms"

	"gopkg.in/yaml.v3"
)

const idPrefix = "TC-"

func init() {
	tms.Register(tms.Backend{
		Name:        config.BackendFile,
		Description: "YAML catalog at --tms-file, rewritten in place after every change.",
		New: func(_ context.Context, cfg config.TMS, _ tms.Options) (tms.Client, error) {
			return Open(cfg.File)
		},
	})
}

// Document is the on-disk layout.
type Document struct {
	Cases []tms.Entity `yaml:"cases"`
}

// Catalog is a tms.Client over one YAML file.
type Catalog struct {
	path string

	mu     sync.Mutex
	doc    Document
	byName map[string]int
	nextID int
}

var _ tms.Client = (*Catalog)(nil)

// Open loads the catalog at path. A missing file is an empty catalog; it is created
// on the first write.
func Open(path string) (*Catalog, error) {
	c := &Catalog{path: path, byName: make(map[string]int), nextID: 1}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c.doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for i, e := range c.doc.Cases {
		if e.Name == "" {
			return nil, fmt.Errorf("parse catalog %s: case %d has no name", path, i+1)
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, fmt.Errorf("parse catalog %s: duplicate case %q", path, e.Name)
		}
		c.byName[e.Name] = i
		if n, ok := parseID(e.ID); ok && n >= c.nextID {
			c.nextID = n + 1
		}
	}
	return c, nil
}

func (c *Catalog) FindByName(_ context.Context, name string) (*tms.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byName[name]
	if !ok {
		return nil, tms.ErrNotFound
	}
	e := clone(c.doc.Cases[i])
	return &e, nil
}

func (c *Catalog) Create(_ context.Context, tc tms.Case) (*tms.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[tc.Name]; exists {
		return nil, fmt.Errorf("case %q already exists", tc.Name)
	}

	e := tms.Entity{ID: idPrefix + strconv.Itoa(c.nextID), Case: tc}
	c.doc.Cases = append(c.doc.Cases, clone(e))
	if err := c.saveLocked(); err != nil {
		c.doc.Cases = c.doc.Cases[:len(c.doc.Cases)-1]
		return nil, err
	}
	c.byName[tc.Name] = len(c.doc.Cases) - 1
	c.nextID++
	return &e, nil
}

func (c *Catalog) Update(_ context.Context, e tms.Entity, tc tms.Case) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byName[e.Name]
	if !ok || c.doc.Cases[i].ID != e.ID {
		return fmt.Errorf("update %s: %w", e.ID, tms.ErrNotFound)
	}

	prev := c.doc.Cases[i]
	c.doc.Cases[i] = clone(tms.Entity{ID: e.ID, Case: tc})
	if err := c.saveLocked(); err != nil {
		c.doc.Cases[i] = prev
		return err
	}
	if tc.Name != e.Name {
		delete(c.byName, e.Name)
		c.byName[tc.Name] = i
	}
	return nil
}

// saveLocked replaces the file atomically so readers never see a partial catalog.
func (c *Catalog) saveLocked() error {
	raw, err := yaml.Marshal(&c.doc)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

func parseID(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
	return n, err == nil && strings.HasPrefix(id, idPrefix)
}

func clone(e tms.Entity) tms.Entity {
	e.Steps = append([]string(nil), e.Steps...)
	return e
}
