// Package discovery turns raw catalog records into bounded, ordered,
// de-duplicated display lists: record filtering, transformation, and
// the three query strategies the UI is built on.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"anidex/config"
	"anidex/jikan"
	"anidex/models"
)

// Strategy popularity and score thresholds. Top listings demand the
// most popular titles; supplementary and search flows relax the floor
// to fill out short result lists.
const (
	topMinMembers           = 50000
	genreMinMembers         = 20000
	genreFallbackMinMembers = 15000
	searchMinMembers        = 5000

	listingMinScore = 6.0
	searchMinScore  = 5.0

	// listingFetchCap is the most raw records one upstream call asks for.
	listingFetchCap = 25

	// nearTieMembers is the popularity gap under which search results
	// are ordered by recency instead.
	nearTieMembers = 10000
)

// Default result counts per strategy.
const (
	DefaultListLimit   = 9
	DefaultSearchLimit = 20
)

// Catalog is the slice of the upstream client the strategies use.
type Catalog interface {
	Top(ctx context.Context, p jikan.TopParams) (*models.Page, error)
	Search(ctx context.Context, p jikan.SearchParams) (*models.Page, error)
}

// Service composes the scheduler-backed catalog client with the
// filtering/ranking pipeline. Strategies never fail: any upstream
// error degrades to an empty (or partial) result, logged for
// diagnostics but invisible to the caller.
type Service struct {
	catalog Catalog
	cache   *expirable.LRU[string, []models.DisplayAnime]
	logger  *slog.Logger
	now     func() time.Time

	metrics serviceMetrics
}

// NewService builds a discovery service. A zero cache size disables
// the in-session response cache.
func NewService(catalog Catalog, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	var cache *expirable.LRU[string, []models.DisplayAnime]
	if cfg.CacheSize > 0 {
		cache = expirable.NewLRU[string, []models.DisplayAnime](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return &Service{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
		metrics: newServiceMetrics(),
	}
}

// TopAnime returns the most recent of the highest-ranked TV titles,
// newest first, capped at limit.
func (s *Service) TopAnime(ctx context.Context, limit int) []models.DisplayAnime {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	key := fmt.Sprintf("top:%d", limit)
	if out, ok := s.cached(key); ok {
		return out
	}

	// Over-fetch to leave room for filtering.
	fetch := limit * 3
	if fetch > listingFetchCap {
		fetch = listingFetchCap
	}
	page, err := s.catalog.Top(ctx, jikan.TopParams{Limit: fetch, Type: "tv"})
	if err != nil {
		s.logger.Error("top anime fetch failed", slog.Any("error", err))
		s.metrics.incFailure("top")
		return []models.DisplayAnime{}
	}

	now := s.now()
	var kept []models.Anime
	for _, a := range page.Data {
		if Eligible(&a, topMinMembers, listingMinScore, now) {
			kept = append(kept, a)
		}
	}
	sortByAiredDesc(kept)
	out := transformAll(truncate(kept, limit))

	s.store(key, out)
	return out
}

// AnimeByGenre returns recent popular titles in the named genre, newest
// first, capped at limit. The primary step filters the ranked listing
// client-side; when it under-returns, a direct genre search with
// relaxed popularity supplements it, de-duplicated against the primary
// results. Supplementary failures are swallowed.
func (s *Service) AnimeByGenre(ctx context.Context, genre string, limit int) []models.DisplayAnime {
	genreID, ok := GenreID(genre)
	if !ok {
		s.logger.Warn("unknown genre", slog.String("genre", genre))
		return []models.DisplayAnime{}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	key := fmt.Sprintf("genre:%d:%d", genreID, limit)
	if out, ok := s.cached(key); ok {
		return out
	}

	page, err := s.catalog.Top(ctx, jikan.TopParams{Limit: listingFetchCap})
	if err != nil {
		s.logger.Error("genre listing fetch failed",
			slog.String("genre", genre),
			slog.Any("error", err),
		)
		s.metrics.incFailure("genre")
		return []models.DisplayAnime{}
	}

	now := s.now()
	var primary []models.Anime
	for _, a := range page.Data {
		if a.HasGenre(genreID) && Eligible(&a, genreMinMembers, listingMinScore, now) {
			primary = append(primary, a)
		}
	}
	sortByAiredDesc(primary)
	out := transformAll(truncate(primary, limit))

	if len(out) < limit {
		extra, err := s.catalog.Search(ctx, jikan.SearchParams{
			GenreID:  genreID,
			OrderBy:  "members",
			Sort:     "desc",
			Limit:    limit * 2,
			MinScore: listingMinScore,
		})
		if err != nil {
			s.logger.Warn("genre fallback search failed",
				slog.String("genre", genre),
				slog.Any("error", err),
			)
			s.metrics.incFailure("genre_fallback")
		} else {
			seen := idSet(out)
			var supplement []models.Anime
			for _, a := range extra.Data {
				if _, dup := seen[a.MalID]; dup {
					continue
				}
				if Eligible(&a, genreFallbackMinMembers, listingMinScore, now) {
					supplement = append(supplement, a)
				}
			}
			sortByAiredDesc(supplement)
			for i := range supplement {
				if len(out) >= limit {
					break
				}
				out = append(out, Transform(&supplement[i]))
			}
		}
	}

	s.store(key, out)
	return out
}

// SearchAnime runs a free-text search, ranked by popularity with
// recency breaking near-ties. When the query is itself a known genre
// name and the text matches under-return, genre-filtered matches are
// appended after them, never interleaved. A blank query returns an
// empty list without touching the network.
func (s *Service) SearchAnime(ctx context.Context, query string, limit int) []models.DisplayAnime {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []models.DisplayAnime{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	key := "search:" + strings.ToLower(trimmed) + ":" + fmt.Sprint(limit)
	if out, ok := s.cached(key); ok {
		return out
	}

	fetch := limit
	if fetch > listingFetchCap {
		fetch = listingFetchCap
	}
	page, err := s.catalog.Search(ctx, jikan.SearchParams{
		Query:    trimmed,
		OrderBy:  "members",
		Sort:     "desc",
		Limit:    fetch,
		MinScore: searchMinScore,
	})
	if err != nil {
		s.logger.Error("search failed",
			slog.String("query", trimmed),
			slog.Any("error", err),
		)
		s.metrics.incFailure("search")
		return []models.DisplayAnime{}
	}

	var hits []models.Anime
	for _, a := range page.Data {
		if a.Members >= searchMinMembers {
			hits = append(hits, a)
		}
	}
	sortBySearchRank(hits)
	out := transformAll(hits)

	if genreID, ok := GenreID(trimmed); ok && len(out) < limit {
		extra, err := s.catalog.Search(ctx, jikan.SearchParams{
			GenreID:  genreID,
			OrderBy:  "members",
			Sort:     "desc",
			Limit:    fetch,
			MinScore: searchMinScore,
		})
		if err != nil {
			s.logger.Warn("genre search fallback failed",
				slog.String("query", trimmed),
				slog.Any("error", err),
			)
			s.metrics.incFailure("search_fallback")
		} else {
			seen := idSet(out)
			var supplement []models.Anime
			for _, a := range extra.Data {
				if a.Members < searchMinMembers {
					continue
				}
				if _, dup := seen[a.MalID]; dup {
					continue
				}
				supplement = append(supplement, a)
			}
			sortBySearchRank(supplement)
			for i := range supplement {
				out = append(out, Transform(&supplement[i]))
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	s.store(key, out)
	return out
}

// HomeSections groups the canonical home-page rails.
type HomeSections struct {
	Top     []models.DisplayAnime `json:"top"`
	Action  []models.DisplayAnime `json:"action"`
	Romance []models.DisplayAnime `json:"romance"`
	Fantasy []models.DisplayAnime `json:"fantasy"`
}

// Home loads the canonical sections concurrently. The shared scheduler
// still serializes the underlying upstream calls, so this changes
// latency shape, not network concurrency.
func (s *Service) Home(ctx context.Context, limit int) HomeSections {
	var sections HomeSections
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		sections.Top = s.TopAnime(ctx, limit)
	}()
	go func() {
		defer wg.Done()
		sections.Action = s.AnimeByGenre(ctx, "action", limit)
	}()
	go func() {
		defer wg.Done()
		sections.Romance = s.AnimeByGenre(ctx, "romance", limit)
	}()
	go func() {
		defer wg.Done()
		sections.Fantasy = s.AnimeByGenre(ctx, "fantasy", limit)
	}()
	wg.Wait()
	return sections
}

// GetMetrics returns a snapshot of the internal counters.
func (s *Service) GetMetrics() map[string]interface{} {
	return s.metrics.snapshot()
}

func (s *Service) cached(key string) ([]models.DisplayAnime, bool) {
	if s.cache == nil {
		return nil, false
	}
	if v, ok := s.cache.Get(key); ok {
		s.metrics.incCacheHit()
		return cloneDisplay(v), true
	}
	s.metrics.incCacheMiss()
	return nil, false
}

func (s *Service) store(key string, v []models.DisplayAnime) {
	if s.cache == nil {
		return
	}
	s.cache.Add(key, cloneDisplay(v))
}

// airedEpoch orders records by air date; a missing date sorts as the
// epoch, i.e. earliest among anything the filter lets through.
func airedEpoch(a *models.Anime) int64 {
	if a.Aired.From == nil {
		return 0
	}
	return a.Aired.From.Unix()
}

func sortByAiredDesc(list []models.Anime) {
	sort.SliceStable(list, func(i, j int) bool {
		return airedEpoch(&list[i]) > airedEpoch(&list[j])
	})
}

// sortBySearchRank orders by popularity descending, except that
// records within nearTieMembers of each other order by recency.
func sortBySearchRank(list []models.Anime) {
	sort.SliceStable(list, func(i, j int) bool {
		diff := list[i].Members - list[j].Members
		if diff > nearTieMembers || diff < -nearTieMembers {
			return diff > 0
		}
		return airedEpoch(&list[i]) > airedEpoch(&list[j])
	})
}

func truncate(list []models.Anime, limit int) []models.Anime {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

func transformAll(list []models.Anime) []models.DisplayAnime {
	out := make([]models.DisplayAnime, 0, len(list))
	for i := range list {
		out = append(out, Transform(&list[i]))
	}
	return out
}

func idSet(list []models.DisplayAnime) map[int]struct{} {
	seen := make(map[int]struct{}, len(list))
	for _, d := range list {
		seen[d.MalID] = struct{}{}
	}
	return seen
}

func cloneDisplay(list []models.DisplayAnime) []models.DisplayAnime {
	out := make([]models.DisplayAnime, len(list))
	copy(out, list)
	return out
}

type serviceMetrics struct {
	mu          sync.Mutex
	cacheHits   int64
	cacheMisses int64
	failures    map[string]int
}

func newServiceMetrics() serviceMetrics {
	return serviceMetrics{
		failures: make(map[string]int),
	}
}

func (m *serviceMetrics) incCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

func (m *serviceMetrics) incCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

func (m *serviceMetrics) incFailure(kind string) {
	m.mu.Lock()
	m.failures[kind]++
	m.mu.Unlock()
}

func (m *serviceMetrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	failures := make(map[string]int, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}

	return map[string]interface{}{
		"cache_hits":   m.cacheHits,
		"cache_misses": m.cacheMisses,
		"failures":     failures,
	}
}
