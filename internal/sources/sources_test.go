// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/encorelive/feedengine/internal/cache"
	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/geo"
	"github.com/encorelive/feedengine/internal/models"
)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		DefaultLimit:       20,
		MaxLimit:           100,
		OwnReviewsLimit:    20,
		FetchTimeout:       8 * time.Second,
		TieThreshold:       0.1,
		MaxPerArtist:       1,
		DefaultRadiusMiles: 50,
		BreakerMaxFailures: 5,
		BreakerInterval:    time.Minute,
		BreakerTimeout:     30 * time.Second,
	}
}

func newTestCache(t *testing.T) *cache.Memory {
	t.Helper()
	m := cache.NewMemory(100, time.Minute)
	t.Cleanup(m.Close)
	return m
}

func review(id, author, text string, age time.Duration, public bool) models.ReviewRecord {
	return models.ReviewRecord{
		ID:        id,
		AuthorID:  author,
		Text:      text,
		IsPublic:  public,
		CreatedAt: time.Now().Add(-age),
	}
}

// fakeReviewStore serves canned rows and counts calls per method.
type fakeReviewStore struct {
	own        []models.ReviewRecord
	public     []models.ReviewRecord
	network    []models.ReviewRecord
	networkErr error
	byAuthors  []models.ReviewRecord

	networkCalls   int
	byAuthorsCalls int
}

func (s *fakeReviewStore) OwnReviews(_ context.Context, _ string, _ int) ([]models.ReviewRecord, error) {
	return s.own, nil
}

func (s *fakeReviewStore) PublicReviews(_ context.Context, _ string, _, _ int) ([]models.ReviewRecord, error) {
	return s.public, nil
}

func (s *fakeReviewStore) NetworkReviews(_ context.Context, _ string, _, _ int) ([]models.ReviewRecord, error) {
	s.networkCalls++
	if s.networkErr != nil {
		return nil, s.networkErr
	}
	return s.network, nil
}

func (s *fakeReviewStore) ReviewsByAuthors(_ context.Context, authorIDs []string, _ int) ([]models.ReviewRecord, error) {
	s.byAuthorsCalls++
	allowed := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		allowed[id] = true
	}
	var out []models.ReviewRecord
	for _, r := range s.byAuthors {
		if allowed[r.AuthorID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeGraph struct {
	byDegree map[int][]string
	errs     map[int]error
}

func (g *fakeGraph) ConnectionsByDegree(_ context.Context, _ string, degree int) ([]string, error) {
	if err := g.errs[degree]; err != nil {
		return nil, err
	}
	return g.byDegree[degree], nil
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), false},
		{errors.New("relation \"network_reviews\" does not exist"), true},
		{errors.New("function get_personalized_events Not Found"), true},
		{fmt.Errorf("calling aggregate: %w", ErrSourceUnavailable), true},
	}
	for _, tt := range tests {
		if got := IsUnavailable(tt.err); got != tt.want {
			t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDegreeLabel(t *testing.T) {
	labels := map[int]string{1: "Friend", 2: "Mutual Friend", 3: "Extended Network", 4: "", 0: ""}
	for degree, want := range labels {
		if got := DegreeLabel(degree); got != want {
			t.Errorf("DegreeLabel(%d) = %q, want %q", degree, got, want)
		}
	}
}

func TestOwnReviewsFetcher(t *testing.T) {
	store := &fakeReviewStore{own: []models.ReviewRecord{
		review("r1", "viewer", "Loved the setlist front to back", time.Hour, false),
		review("r2", "viewer", "", time.Hour, false),
		review("r3", "viewer", "ATTENDANCE_ONLY", time.Hour, false),
		{ID: "r4", AuthorID: "viewer", Text: "Great crowd", IsDraft: true, CreatedAt: time.Now()},
		review("r5", "viewer", "Sound was muddy but the encore saved it", 2*time.Hour, false),
	}}

	f := NewOwnReviewsFetcher(store, testFeedConfig())
	rows, err := f.Fetch(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 reviews after filtering, got %d", len(rows))
	}
	for _, r := range rows {
		if !r.OwnedByViewer {
			t.Errorf("review %s not marked as viewer-owned", r.ID)
		}
	}
}

func TestOwnReviewsFetcherCap(t *testing.T) {
	cfg := testFeedConfig()
	cfg.OwnReviewsLimit = 3
	store := &fakeReviewStore{}
	for i := 0; i < 10; i++ {
		store.own = append(store.own, review(fmt.Sprintf("r%d", i), "viewer", "plenty of text here", time.Hour, false))
	}

	f := NewOwnReviewsFetcher(store, cfg)
	rows, err := f.Fetch(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected cap of 3, got %d", len(rows))
	}
}

func TestPublicReviewsFetcher(t *testing.T) {
	store := &fakeReviewStore{public: []models.ReviewRecord{
		review("r1", "other1", "Unreal pit energy", time.Hour, true),
		review("r2", "viewer", "My own review", time.Hour, true),
		review("r3", "other2", "Kept private", time.Hour, false),
		review("r4", "other3", "ATTENDANCE_ONLY", time.Hour, true),
	}}

	f := NewPublicReviewsFetcher(store)
	rows, err := f.Fetch(context.Background(), "viewer", 20, 0)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "r1" {
		t.Fatalf("expected only r1 to survive, got %+v", rows)
	}
}

func TestNetworkReviewsAggregate(t *testing.T) {
	store := &fakeReviewStore{network: []models.ReviewRecord{
		{ID: "n1", AuthorID: "friend", Text: "Front row, worth it", CreatedAt: time.Now(), ConnectionDegree: 1},
		{ID: "n2", AuthorID: "mutual", Text: "Solid opener", CreatedAt: time.Now(), ConnectionDegree: 2, ConnectionLabel: "Mutual Friend"},
	}}

	f := NewNetworkReviewsFetcher(store, &fakeGraph{}, newTestCache(t), testFeedConfig())
	rows, err := f.Fetch(context.Background(), "viewer", 20, 0)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ConnectionLabel != "Friend" {
		t.Errorf("label not filled from degree: %q", rows[0].ConnectionLabel)
	}
	if rows[1].ConnectionLabel != "Mutual Friend" {
		t.Errorf("pre-labeled row overwritten: %q", rows[1].ConnectionLabel)
	}
	if store.byAuthorsCalls != 0 {
		t.Errorf("fallback path ran despite healthy aggregate")
	}
}

func TestNetworkReviewsFallback(t *testing.T) {
	store := &fakeReviewStore{
		networkErr: errors.New("function get_network_reviews does not exist"),
		byAuthors: []models.ReviewRecord{
			review("n1", "friend1", "Older but gold", 48*time.Hour, true),
			review("n2", "mutual1", "Just got back, incredible", time.Hour, true),
			review("n3", "stranger", "Should not appear", time.Hour, true),
		},
	}
	graph := &fakeGraph{byDegree: map[int][]string{
		1: {"friend1"},
		2: {"mutual1", "friend1"}, // overlap keeps the closer degree
	}}

	f := NewNetworkReviewsFetcher(store, graph, newTestCache(t), testFeedConfig())
	rows, err := f.Fetch(context.Background(), "viewer", 20, 0)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from fallback, got %d", len(rows))
	}
	// Newest first.
	if rows[0].ID != "n2" || rows[1].ID != "n1" {
		t.Errorf("fallback rows out of order: %s, %s", rows[0].ID, rows[1].ID)
	}
	if rows[0].ConnectionDegree != 2 || rows[0].ConnectionLabel != "Mutual Friend" {
		t.Errorf("n2 mislabeled: degree=%d label=%q", rows[0].ConnectionDegree, rows[0].ConnectionLabel)
	}
	if rows[1].ConnectionDegree != 1 || rows[1].ConnectionLabel != "Friend" {
		t.Errorf("n1 mislabeled: degree=%d label=%q", rows[1].ConnectionDegree, rows[1].ConnectionLabel)
	}
}

func TestNetworkReviewsFallbackToleratesMissingThirdDegree(t *testing.T) {
	store := &fakeReviewStore{
		networkErr: errors.New("aggregate not found"),
		byAuthors: []models.ReviewRecord{
			review("n1", "friend1", "Still buzzing", time.Hour, true),
		},
	}
	graph := &fakeGraph{
		byDegree: map[int][]string{1: {"friend1"}},
		errs:     map[int]error{3: errors.New("curated set unavailable")},
	}

	f := NewNetworkReviewsFetcher(store, graph, newTestCache(t), testFeedConfig())
	rows, err := f.Fetch(context.Background(), "viewer", 20, 0)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestNetworkReviewsFirstPageCached(t *testing.T) {
	store := &fakeReviewStore{network: []models.ReviewRecord{
		{ID: "n1", AuthorID: "friend", Text: "Cached soon", CreatedAt: time.Now(), ConnectionDegree: 1},
	}}

	f := NewNetworkReviewsFetcher(store, &fakeGraph{}, newTestCache(t), testFeedConfig())
	ctx := context.Background()

	if _, err := f.Fetch(ctx, "viewer", 20, 0); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.Fetch(ctx, "viewer", 20, 0); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if store.networkCalls != 1 {
		t.Errorf("expected 1 store call with warm cache, got %d", store.networkCalls)
	}

	// Deeper pages bypass the cache.
	if _, err := f.Fetch(ctx, "viewer", 20, 20); err != nil {
		t.Fatalf("offset fetch: %v", err)
	}
	if store.networkCalls != 2 {
		t.Errorf("expected offset page to hit the store, got %d calls", store.networkCalls)
	}
}

type fakePersonalization struct {
	rows  []models.ScoredEventRow
	err   error
	calls int
}

func (p *fakePersonalization) PersonalizedEvents(_ context.Context, _ string, _, _ int, _ *models.GeoPoint, _ float64) ([]models.ScoredEventRow, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.rows, nil
}

type fakeEventStore struct {
	rows []models.EventRecord
}

func (s *fakeEventStore) UpcomingEvents(_ context.Context, _ int) ([]models.EventRecord, error) {
	return s.rows, nil
}

type fakeFollows struct {
	set FollowedArtists
}

func (f *fakeFollows) FollowedArtists(_ context.Context, _ string) (FollowedArtists, error) {
	return f.set, nil
}

func upcomingEvent(id, artist, city string, daysOut int) models.EventRecord {
	return models.EventRecord{EventData: models.EventData{
		ID:         id,
		Title:      artist + " Live",
		ArtistName: artist,
		VenueName:  "Test Hall",
		VenueCity:  city,
		EventDate:  time.Now().Add(time.Duration(daysOut) * 24 * time.Hour),
	}}
}

func newEventsFetcher(t *testing.T, p PersonalizationSource, s EventStore, follows ArtistFollows) *PersonalizedEventsFetcher {
	t.Helper()
	return NewPersonalizedEventsFetcher(p, s, follows, geo.StaticGeocoder{}, newTestCache(t), testFeedConfig())
}

func TestPersonalizedEventsPrimary(t *testing.T) {
	p := &fakePersonalization{rows: []models.ScoredEventRow{
		{EventRecord: upcomingEvent("e1", "Radiohead", "New York", 10), RawScore: 87},
	}}
	f := newEventsFetcher(t, p, &fakeEventStore{}, nil)

	rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil, nil)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(rows))
	}
	scored, ok := rows[0].(models.ScoredEventRow)
	if !ok {
		t.Fatalf("expected ScoredEventRow, got %T", rows[0])
	}
	if scored.RawScore != 87 {
		t.Errorf("raw score = %v, want 87", scored.RawScore)
	}
}

func TestPersonalizedEventsFallbackActivation(t *testing.T) {
	p := &fakePersonalization{err: errors.New("function get_personalized_events(uuid, integer) does not exist")}
	store := &fakeEventStore{rows: []models.EventRecord{
		upcomingEvent("e1", "Radiohead", "New York", 10),
		upcomingEvent("e2", "Wilco", "Chicago", 40),
	}}
	f := newEventsFetcher(t, p, store, nil)

	rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil, nil)
	if err != nil {
		t.Fatalf("fallback must not surface the primary error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 fallback candidates, got %d", len(rows))
	}
	if _, ok := rows[0].(models.EventRecord); !ok {
		t.Errorf("fallback candidates should be plain EventRecord, got %T", rows[0])
	}
}

func TestPersonalizedEventsNoFallbackOnGenericError(t *testing.T) {
	p := &fakePersonalization{err: errors.New("connection reset by peer")}
	store := &fakeEventStore{rows: []models.EventRecord{upcomingEvent("e1", "Wilco", "Chicago", 5)}}
	f := newEventsFetcher(t, p, store, nil)

	if _, err := f.Fetch(context.Background(), "viewer", 20, 0, nil, nil); err == nil {
		t.Fatal("generic primary failure should surface, not silently fall back")
	}
}

func TestPersonalizedEventsFallbackFilters(t *testing.T) {
	p := &fakePersonalization{err: errors.New("does not exist")}

	t.Run("genre", func(t *testing.T) {
		rock := upcomingEvent("e1", "Radiohead", "New York", 5)
		rock.Genres = []string{"Rock", "Alternative"}
		jazz := upcomingEvent("e2", "Kamasi Washington", "New York", 5)
		jazz.Genres = []string{"Jazz"}

		f := newEventsFetcher(t, p, &fakeEventStore{rows: []models.EventRecord{rock, jazz}}, nil)
		rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil,
			&models.FeedFilters{Genres: []string{"rock"}})
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].(models.EventRecord).ID != "e1" {
			t.Fatalf("genre filter kept wrong rows: %+v", rows)
		}
	})

	t.Run("city alias", func(t *testing.T) {
		dc := upcomingEvent("e1", "Fugazi", "Washington", 5)
		chi := upcomingEvent("e2", "Wilco", "Chicago", 5)

		f := newEventsFetcher(t, p, &fakeEventStore{rows: []models.EventRecord{dc, chi}}, nil)
		rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil,
			&models.FeedFilters{Cities: []string{"D.C."}})
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].(models.EventRecord).ID != "e1" {
			t.Fatalf("city alias filter kept wrong rows: %+v", rows)
		}
	})

	t.Run("day of week", func(t *testing.T) {
		a := upcomingEvent("e1", "Wilco", "Chicago", 5)
		b := upcomingEvent("e2", "Wilco", "Chicago", 6)

		f := newEventsFetcher(t, p, &fakeEventStore{rows: []models.EventRecord{a, b}}, nil)
		rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil,
			&models.FeedFilters{DaysOfWeek: []time.Weekday{a.EventDate.Weekday()}})
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].(models.EventRecord).ID != "e1" {
			t.Fatalf("weekday filter kept wrong rows: %+v", rows)
		}
	})

	t.Run("radius", func(t *testing.T) {
		nycLat, nycLng := 40.7128, -74.0060
		laLat, laLng := 34.0522, -118.2437

		near := upcomingEvent("e1", "Interpol", "New York", 5)
		near.Latitude, near.Longitude = &nycLat, &nycLng
		far := upcomingEvent("e2", "Interpol", "Los Angeles", 5)
		far.Latitude, far.Longitude = &laLat, &laLng
		noCoords := upcomingEvent("e3", "Interpol", "New York", 5)

		f := newEventsFetcher(t, p, &fakeEventStore{rows: []models.EventRecord{near, far, noCoords}}, nil)
		rows, err := f.Fetch(context.Background(), "viewer", 20, 0,
			&models.GeoPoint{Lat: nycLat, Lng: nycLng},
			&models.FeedFilters{RadiusMiles: 25})
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].(models.EventRecord).ID != "e1" {
			t.Fatalf("radius filter kept wrong rows: %+v", rows)
		}
	})

	t.Run("following only", func(t *testing.T) {
		followedEvent := upcomingEvent("e1", "Radiohead", "New York", 5)
		otherEvent := upcomingEvent("e2", "Wilco", "Chicago", 5)

		follows := &fakeFollows{set: FollowedArtists{Names: []string{"radiohead"}}}
		f := newEventsFetcher(t, p, &fakeEventStore{rows: []models.EventRecord{followedEvent, otherEvent}}, follows)
		rows, err := f.Fetch(context.Background(), "viewer", 20, 0, nil,
			&models.FeedFilters{FollowingOnly: true})
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].(models.EventRecord).ID != "e1" {
			t.Fatalf("following-only filter kept wrong rows: %+v", rows)
		}
	})
}

func TestPersonalizedEventsFirstPageCached(t *testing.T) {
	p := &fakePersonalization{rows: []models.ScoredEventRow{
		{EventRecord: upcomingEvent("e1", "Radiohead", "New York", 10), RawScore: 90},
	}}
	f := newEventsFetcher(t, p, &fakeEventStore{}, nil)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, "viewer", 20, 0, nil, nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.Fetch(ctx, "viewer", 20, 0, nil, nil); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 aggregate call with warm cache, got %d", p.calls)
	}

	// Filtered requests are never cached.
	if _, err := f.Fetch(ctx, "viewer", 20, 0, nil, &models.FeedFilters{Genres: []string{"rock"}}); err != nil {
		t.Fatalf("filtered fetch: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("expected filtered request to bypass cache, got %d calls", p.calls)
	}
}

type fakeActivity struct {
	rows []models.FriendActivityRecord
	err  error
}

func (a *fakeActivity) RecentFriendActivity(_ context.Context, _ string, _ int) ([]models.FriendActivityRecord, error) {
	return a.rows, a.err
}

func TestFriendActivityFetcher(t *testing.T) {
	src := &fakeActivity{rows: []models.FriendActivityRecord{
		{ID: "a1", ActorID: "friend1", Title: "New friend", CreatedAt: time.Now()},
		{ID: "a2", ActorID: "friend2", Title: "Interested in a show", CreatedAt: time.Now()},
		{ID: "a3", ActorID: "friend3", Title: "New friend", CreatedAt: time.Now()},
	}}

	f := NewFriendActivityFetcher(src)
	rows, err := f.Fetch(context.Background(), "viewer", 2)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected cap of 2, got %d", len(rows))
	}
}

func TestFriendActivityFetcherError(t *testing.T) {
	f := NewFriendActivityFetcher(&fakeActivity{err: errors.New("boom")})
	if _, err := f.Fetch(context.Background(), "viewer", 10); err == nil {
		t.Fatal("expected error to surface to the orchestrator")
	}
}

func TestFollowedArtistsContains(t *testing.T) {
	set := FollowedArtists{
		UUIDs:       []string{"uuid-1"},
		ExternalIDs: []string{"ext-9"},
		Names:       []string{"Radiohead"},
	}

	tests := []struct {
		name  string
		event models.EventData
		want  bool
	}{
		{"by uuid", models.EventData{ArtistID: "uuid-1"}, true},
		{"by external id", models.EventData{ExternalID: "ext-9"}, true},
		{"by name case-insensitive", models.EventData{ArtistName: "RADIOHEAD"}, true},
		{"no match", models.EventData{ArtistID: "other", ArtistName: "Wilco"}, false},
		{"empty event", models.EventData{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Contains(tt.event); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}
