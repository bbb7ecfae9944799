// Package catalog holds the immutable set of locations and question prompts
// that rooms draw from.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aaronzipp/sus-server/internal/models"
)

//go:embed data/locations.json data/questions.json
var dataFS embed.FS

// Rand is the subset of *rand.Rand (math/rand/v2) the catalog and game use
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Catalog is safe for concurrent reads; nothing mutates it after construction
type Catalog struct {
	locations   []models.Location
	byID        map[string]int
	questions   []models.Question
	categories  []string
	known       map[string]bool
	maxCapacity int
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Load("", "")
}

// Load reads the dataset, preferring the given files over the embedded copies
func Load(locationsPath, questionsPath string) (*Catalog, error) {
	locData, err := readData(locationsPath, "data/locations.json")
	if err != nil {
		return nil, err
	}
	qData, err := readData(questionsPath, "data/questions.json")
	if err != nil {
		return nil, err
	}
	return Parse(locData, qData)
}

func readData(path, embedded string) ([]byte, error) {
	if path == "" {
		return dataFS.ReadFile(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Parse decodes the JSON dataset
func Parse(locationsJSON, questionsJSON []byte) (*Catalog, error) {
	var locations []models.Location
	if err := json.Unmarshal(locationsJSON, &locations); err != nil {
		return nil, fmt.Errorf("parsing locations: %w", err)
	}
	var questions []models.Question
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	return New(locations, questions)
}

// New validates and indexes the dataset
func New(locations []models.Location, questions []models.Question) (*Catalog, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("catalog has no locations")
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}

	c := &Catalog{
		byID:  make(map[string]int, len(locations)),
		known: make(map[string]bool),
	}
	for _, loc := range locations {
		loc.ID = normalizeID(loc.ID)
		if loc.ID == "" || strings.TrimSpace(loc.Name) == "" {
			return nil, fmt.Errorf("location %q: id and name are required", loc.ID)
		}
		if _, dup := c.byID[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", loc.ID)
		}
		if len(loc.Roles) < 2 {
			return nil, fmt.Errorf("location %q: needs at least 2 roles", loc.ID)
		}
		loc.Roles = append([]string(nil), loc.Roles...)
		c.byID[loc.ID] = len(c.locations)
		c.locations = append(c.locations, loc)
		c.maxCapacity = max(c.maxCapacity, loc.Capacity())
	}

	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if q.ID == "" || strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %q: id and text are required", q.ID)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true

		cats := make([]string, 0, len(q.Categories))
		for _, cat := range q.Categories {
			cat = normalizeCategory(cat)
			if cat == "" {
				continue
			}
			cats = append(cats, cat)
			c.known[cat] = true
		}
		if len(cats) == 0 {
			return nil, fmt.Errorf("question %q: needs at least one category", q.ID)
		}
		q.Categories = cats
		c.questions = append(c.questions, q)
	}

	for cat := range c.known {
		c.categories = append(c.categories, cat)
	}
	sort.Strings(c.categories)
	return c, nil
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// location ids match case-insensitively
func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Size is the number of locations
func (c *Catalog) Size() int {
	return len(c.locations)
}

// MaxCapacity is the largest roster any single location can seat
func (c *Catalog) MaxCapacity() int {
	return c.maxCapacity
}

// Categories returns every known question category, sorted
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Location looks a location up by id
func (c *Catalog) Location(id string) (models.Location, bool) {
	i, ok := c.byID[normalizeID(id)]
	if !ok {
		return models.Location{}, false
	}
	return c.locations[i], true
}

// NormalizeCategories keeps the known categories of in, de-duplicated and
// sorted. Empty or entirely unknown input selects every category.
func (c *Catalog) NormalizeCategories(in []string) []string {
	picked := make(map[string]bool, len(in))
	for _, cat := range in {
		cat = normalizeCategory(cat)
		if c.known[cat] {
			picked[cat] = true
		}
	}
	if len(picked) == 0 {
		return c.Categories()
	}
	out := make([]string, 0, len(picked))
	for cat := range picked {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// RandomLocations picks up to n distinct locations able to seat players.
// The returned locations share their role slices with the catalog; callers
// must copy before reordering them.
func (c *Catalog) RandomLocations(rng Rand, n, players int) []models.Location {
	eligible := make([]models.Location, 0, len(c.locations))
	for _, loc := range c.locations {
		if loc.Capacity() >= players {
			eligible = append(eligible, loc)
		}
	}
	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if n < len(eligible) {
		eligible = eligible[:n]
	}
	return eligible
}

// RandomQuestion draws a question tagged with any of categories whose id is
// not in used. A nil used set allows every question.
func (c *Catalog) RandomQuestion(rng Rand, categories []string, used map[string]bool) (models.Question, bool) {
	want := make(map[string]bool, len(categories))
	for _, cat := range categories {
		want[cat] = true
	}

	candidates := make([]int, 0, len(c.questions))
	for i, q := range c.questions {
		if used[q.ID] {
			continue
		}
		if len(want) > 0 && !hasAny(q.Categories, want) {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return models.Question{}, false
	}
	q := c.questions[candidates[rng.IntN(len(candidates))]]
	q.Categories = append([]string(nil), q.Categories...)
	return q, true
}

func hasAny(cats []string, want map[string]bool) bool {
	for _, cat := range cats {
		if want[cat] {
			return true
		}
	}
	return false
}
