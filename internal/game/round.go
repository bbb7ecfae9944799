package game

import (
	"slices"
	"strings"
	"time"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/models"
)

// Round is the state of one play cycle, from role assignment to resolution.
// It performs no I/O and is only touched while its room is held exclusively.
type Round struct {
	number     int
	location   models.Location
	impostorID string
	roles      map[string]models.RoleAssignment
	names      map[string]string
	turnOrder  []string
	turn       int
	current    models.Question
	used       map[string]bool
	asked      []models.AskedQuestion
	startedAt  time.Time
	resolution *models.Resolution

	roundTime    int
	allowRepeats bool
	categories   []string
	catalog      *catalog.Catalog
	rng          catalog.Rand
	now          func() time.Time
}

// NewRound assigns roles and turn order for roster at loc and draws the
// opening question
func NewRound(number int, loc models.Location, roster []*models.Player, rules models.GameRules, cat *catalog.Catalog, rng catalog.Rand, now func() time.Time) (*Round, error) {
	if len(roster) < MinPlayers {
		return nil, Validation("at least %d players are needed to start a round", MinPlayers)
	}
	if len(loc.Roles) < len(roster)-1 {
		return nil, Validation("%s only has roles for %d players", loc.Name, loc.Capacity())
	}

	r := &Round{
		number:       number,
		location:     loc,
		roles:        make(map[string]models.RoleAssignment, len(roster)),
		names:        make(map[string]string, len(roster)),
		used:         make(map[string]bool),
		roundTime:    rules.RoundTimeSeconds,
		allowRepeats: rules.AllowRepeatedQuestions,
		categories:   slices.Clone(rules.QuestionCategories),
		catalog:      cat,
		rng:          rng,
		now:          now,
	}

	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.ID)
		r.names[p.ID] = p.Name
	}

	// Roles: pick the impostor from one permutation, hand out shuffled roles in that order
	shuffled := slices.Clone(ids)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	r.impostorID = shuffled[rng.IntN(len(shuffled))]

	roleNames := slices.Clone(loc.Roles)
	rng.Shuffle(len(roleNames), func(i, j int) { roleNames[i], roleNames[j] = roleNames[j], roleNames[i] })
	next := 0
	for _, id := range shuffled {
		if id == r.impostorID {
			r.roles[id] = models.RoleAssignment{Role: models.RoleImpostor}
			continue
		}
		r.roles[id] = models.RoleAssignment{Role: models.RoleCivilian, RoleName: roleNames[next]}
		next++
	}

	// Turn order is an independent permutation
	r.turnOrder = slices.Clone(ids)
	rng.Shuffle(len(r.turnOrder), func(i, j int) { r.turnOrder[i], r.turnOrder[j] = r.turnOrder[j], r.turnOrder[i] })

	q, ok := cat.RandomQuestion(rng, r.categories, nil)
	if !ok {
		return nil, Validation("no questions available for categories %s", strings.Join(r.categories, ", "))
	}
	r.current = q
	r.used[q.ID] = true
	r.startedAt = now()
	return r, nil
}

// Location is the secret location
func (r *Round) Location() models.Location { return r.location }

// ImpostorID is the id of the round's impostor
func (r *Round) ImpostorID() string { return r.impostorID }

// Resolved reports whether the round has ended
func (r *Round) Resolved() bool { return r.resolution != nil }

// CurrentTurnPlayerID is the player who may draw the next question
func (r *Round) CurrentTurnPlayerID() string {
	return r.turnOrder[r.turn]
}

// Role returns a player's secret assignment
func (r *Round) Role(playerID string) (models.RoleAssignment, bool) {
	role, ok := r.roles[playerID]
	return role, ok
}

// NextQuestion archives the current question, passes the turn on and draws
// a new question. Only the current turn holder may call it; a rejected call
// leaves the round untouched.
func (r *Round) NextQuestion(playerID string) (models.NextQuestion, error) {
	if r.resolution != nil {
		return models.NextQuestion{}, Validation("round already resolved")
	}
	if playerID != r.CurrentTurnPlayerID() {
		return models.NextQuestion{}, Forbidden("it is not your turn")
	}

	q, reset, ok := r.pickNext()
	if !ok {
		return models.NextQuestion{}, Validation("no questions left to draw")
	}

	r.asked = append(r.asked, models.AskedQuestion{
		ID:         r.current.ID,
		Text:       r.current.Text,
		Categories: r.current.Categories,
		AskedBy:    playerID,
		AskedAtMs:  r.now().UnixMilli(),
	})
	r.turn = (r.turn + 1) % len(r.turnOrder)
	if reset {
		clear(r.used)
	}
	r.used[q.ID] = true
	r.current = q

	return models.NextQuestion{
		Question:         cloneQuestion(q),
		NextTurnPlayerID: r.CurrentTurnPlayerID(),
		AskedCount:       len(r.asked),
	}, nil
}

// pickNext draws without mutating the round. reset is true when the used
// set had to be emptied to find a question.
func (r *Round) pickNext() (q models.Question, reset bool, ok bool) {
	if r.allowRepeats {
		// avoid showing the same prompt twice in a row when there is a choice
		if q, ok := r.catalog.RandomQuestion(r.rng, r.categories, map[string]bool{r.current.ID: true}); ok {
			return q, false, true
		}
		q, ok := r.catalog.RandomQuestion(r.rng, r.categories, nil)
		return q, false, ok
	}
	if q, ok := r.catalog.RandomQuestion(r.rng, r.categories, r.used); ok {
		return q, false, true
	}
	q, ok = r.catalog.RandomQuestion(r.rng, r.categories, nil)
	return q, true, ok
}

// Resolve ends the round with an accusation or a location guess. Exactly one
// of the guess fields must be set, and it must match the actor's role.
func (r *Round) Resolve(actorID string, guess models.Guess) (models.Resolution, error) {
	if r.resolution != nil {
		return models.Resolution{}, Validation("round already resolved")
	}
	role, ok := r.roles[actorID]
	if !ok {
		return models.Resolution{}, Forbidden("player is not part of this round")
	}

	accused := strings.TrimSpace(guess.AccusedPlayerID)
	locationID := strings.ToLower(strings.TrimSpace(guess.LocationID))

	var outcome models.Outcome
	var err error
	switch {
	case accused != "" && locationID != "":
		return models.Resolution{}, Validation("submit either an accusation or a location guess, not both")
	case accused != "":
		outcome, err = r.accuse(actorID, role, accused)
	case locationID != "":
		outcome, err = r.guessLocation(actorID, role, locationID)
	default:
		return models.Resolution{}, Validation("an accusation or a location guess is required")
	}
	if err != nil {
		return models.Resolution{}, err
	}

	res := models.NewResolution(outcome, r.now())
	r.resolution = &res
	return res, nil
}

func (r *Round) accuse(actorID string, role models.RoleAssignment, accusedID string) (models.Outcome, error) {
	if role.Role != models.RoleCivilian {
		return nil, Forbidden("the impostor cannot accuse anyone; guess the location instead")
	}
	if accusedID == actorID {
		return nil, Validation("you cannot accuse yourself")
	}
	if _, ok := r.roles[accusedID]; !ok {
		return nil, NotFound("player %s is not part of this round", accusedID)
	}

	if accusedID == r.impostorID {
		return models.ImpostorIdentified{
			AccuserID:    actorID,
			AccuserName:  r.names[actorID],
			ImpostorID:   r.impostorID,
			ImpostorName: r.names[r.impostorID],
		}, nil
	}
	return models.ImpostorMisdirected{
		AccuserID:    actorID,
		AccuserName:  r.names[actorID],
		AccusedID:    accusedID,
		AccusedName:  r.names[accusedID],
		ImpostorID:   r.impostorID,
		ImpostorName: r.names[r.impostorID],
	}, nil
}

func (r *Round) guessLocation(actorID string, role models.RoleAssignment, locationID string) (models.Outcome, error) {
	if role.Role != models.RoleImpostor {
		return nil, Forbidden("only the impostor can guess the location")
	}

	if locationID == r.location.ID {
		return models.LocationIdentified{
			ImpostorID:   actorID,
			ImpostorName: r.names[actorID],
			LocationID:   r.location.ID,
			LocationName: r.location.Name,
		}, nil
	}

	guessed, ok := r.catalog.Location(locationID)
	if !ok {
		return nil, NotFound("unknown location %q", locationID)
	}
	return models.LocationMissed{
		ImpostorID:          actorID,
		ImpostorName:        r.names[actorID],
		GuessedLocationID:   guessed.ID,
		GuessedLocationName: guessed.Name,
		ActualLocationID:    r.location.ID,
		ActualLocationName:  r.location.Name,
	}, nil
}

// View is the public projection of the round
func (r *Round) View() models.RoundView {
	current := cloneQuestion(r.current)
	view := models.RoundView{
		RoundNumber:         r.number,
		TurnOrder:           slices.Clone(r.turnOrder),
		CurrentTurnPlayerID: r.CurrentTurnPlayerID(),
		CurrentQuestion:     &current,
		AskedQuestions:      slices.Clone(r.asked),
		RoundTimeSeconds:    r.roundTime,
		StartedAtMs:         r.startedAt.UnixMilli(),
		EndsAtMs:            r.startedAt.Add(time.Duration(r.roundTime) * time.Second).UnixMilli(),
	}
	if view.AskedQuestions == nil {
		view.AskedQuestions = []models.AskedQuestion{}
	}
	if r.resolution != nil {
		res := *r.resolution
		view.Resolution = &res
	}
	return view
}

// Assignment is what playerID may know about the round
func (r *Round) Assignment(playerID string) (models.PlayerAssignment, error) {
	role, ok := r.roles[playerID]
	if !ok {
		return models.PlayerAssignment{}, NotFound("no assignment for player %s", playerID)
	}
	a := models.PlayerAssignment{
		PlayerID:    playerID,
		RoundNumber: r.number,
		Role:        role.Role,
	}
	if role.Role == models.RoleCivilian {
		a.LocationID = r.location.ID
		a.LocationName = r.location.Name
		a.RoleName = role.RoleName
	}
	return a, nil
}

// Summary records a resolved round for the room history
func (r *Round) Summary() models.RoundSummary {
	s := models.RoundSummary{
		RoundNumber:    r.number,
		LocationID:     r.location.ID,
		LocationName:   r.location.Name,
		ImpostorID:     r.impostorID,
		ImpostorName:   r.names[r.impostorID],
		QuestionsAsked: len(r.asked),
		StartedAtMs:    r.startedAt.UnixMilli(),
	}
	if r.resolution != nil {
		s.Resolution = *r.resolution
		s.EndedAtMs = r.resolution.ResolvedAt.UnixMilli()
	}
	return s
}

func cloneQuestion(q models.Question) models.Question {
	q.Categories = slices.Clone(q.Categories)
	return q
}
