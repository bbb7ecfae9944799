package game

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/models"
)

type fakeClock struct {
	t time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		[]models.Location{
			{ID: "alpha", Name: "Alpha", Roles: []string{"a1", "a2", "a3", "a4"}},
			{ID: "beta", Name: "Beta", Roles: []string{"b1", "b2", "b3", "b4"}},
			{ID: "gamma", Name: "Gamma", Roles: []string{"g1", "g2"}},
		},
		[]models.Question{
			{ID: "q1", Text: "first", Categories: []string{"general"}},
			{ID: "q2", Text: "second", Categories: []string{"general"}},
			{ID: "q3", Text: "third", Categories: []string{"general"}},
			{ID: "q4", Text: "fourth", Categories: []string{"people"}},
		},
	)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func testDeps(t *testing.T, clock *fakeClock) Deps {
	t.Helper()
	return Deps{
		Catalog:     testCatalog(t),
		Rand:        rand.New(rand.NewPCG(7, 11)),
		Now:         clock.Now,
		EventBuffer: 64,
	}
}

func players(names ...string) []*models.Player {
	base := time.UnixMilli(1_700_000_000_000)
	list := make([]*models.Player, 0, len(names))
	for i, name := range names {
		list = append(list, &models.Player{ID: "p-" + name, Name: name, JoinedAt: base.Add(time.Duration(i) * time.Second)})
	}
	return list
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *game.Error, got %T: %v", err, err)
	}
	if gerr.Kind != want {
		t.Fatalf("expected %s error, got %s: %v", want, gerr.Kind, err)
	}
}
