package graph

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/vault"
	"github.com/starford/ansuz/internal/wikilink"
)

// parseConcurrency bounds the read+parse fan-out. Files are independent;
// the merge below is sequential over the sorted file list so the final
// maps never depend on goroutine scheduling.
const parseConcurrency = 8

// Options controls one analyzer pass.
type Options struct {
	// ContextLength is the per-side context window for backlink entries;
	// 0 means wikilink.DefaultContextLength.
	ContextLength int
	// SkipCache bypasses the incremental cache for this call.
	SkipCache bool
}

// Service runs graph analysis over a vault. Construct with NewService;
// each instance owns its cache so tests get isolated state.
type Service struct {
	provider vault.Provider
	cache    *cache.Cache[*Stats]
}

// NewService creates an analyzer over provider with the given cache TTL.
func NewService(provider vault.Provider, ttl time.Duration) *Service {
	return &Service{
		provider: provider,
		cache:    cache.New[*Stats](ttl),
	}
}

func cacheKey(dir string) string {
	return "graph:" + dir
}

// Analyze computes graph statistics for dir (relative to the vault root,
// empty for the whole vault). Repeat calls with unchanged files are served
// from the cache, keyed by dir with the discovered file set as
// dependencies. A missing dir yields empty stats, not an error.
func (s *Service) Analyze(dir string, opts Options) (*Stats, error) {
	key := cacheKey(dir)
	if !opts.SkipCache {
		if st, ok := s.cache.Get(key, nil); ok {
			return st, nil
		}
	}

	st, files, err := s.compute(dir, opts)
	if err != nil {
		return nil, err
	}
	if !opts.SkipCache {
		s.cache.Set(key, st, files)
	}
	return st, nil
}

// parsedNote is the per-file output of the parallel read+parse step.
type parsedNote struct {
	meta  models.NoteMetadata
	title string
	body  string
	links []wikilink.Wikilink
}

func (s *Service) compute(dir string, opts Options) (*Stats, []string, error) {
	metas, err := s.provider.List(dir)
	if err != nil {
		return nil, nil, err
	}

	st := emptyStats()
	st.NoteCount = len(metas)
	if len(metas) == 0 {
		return st, nil, nil
	}

	// Fan out: one read+parse per file, results slotted by index.
	notes := make([]*parsedNote, len(metas))
	var g errgroup.Group
	g.SetLimit(parseConcurrency)
	for i, m := range metas {
		g.Go(func() error {
			data, readErr := s.provider.Read(m.Path)
			if readErr != nil {
				// Unreadable file: skip, keep the rest of the vault.
				return nil
			}
			fm, body := wikilink.SplitFrontmatter(data)
			stem := strings.TrimSuffix(filepath.Base(m.Path), ".md")
			notes[i] = &parsedNote{
				meta:  m,
				title: wikilink.TitleFrom(fm, stem),
				body:  body,
				links: wikilink.Parse(body),
			}
			return nil
		})
	}
	_ = g.Wait()

	// Title index: normalised title and normalised basename both resolve
	// to the note. First definition wins; the file list is sorted, so
	// collisions resolve deterministically.
	type noteRef struct {
		path  string
		title string
	}
	index := make(map[string]noteRef, len(notes)*2)
	addRef := func(norm string, ref noteRef) {
		if norm == "" {
			return
		}
		if _, ok := index[norm]; !ok {
			index[norm] = ref
		}
	}
	for _, n := range notes {
		if n == nil {
			continue
		}
		ref := noteRef{path: n.meta.Path, title: n.title}
		addRef(wikilink.NormalizeTitle(n.title), ref)
		addRef(wikilink.NormalizeTitle(filepath.Base(n.meta.Path)), ref)
	}

	files := make([]string, 0, len(metas))
	for _, m := range metas {
		files = append(files, filepath.Join(s.provider.Root(), m.Path))
	}

	backlinked := make(map[string]struct{})
	dangling := make(map[string]*DanglingLink)
	var danglingOrder []string

	for _, n := range notes {
		if n == nil {
			continue
		}
		st.TotalMentions += len(n.links)

		// Unique raw targets in first-appearance order, with per-target
		// occurrence counts and the first occurrence for context.
		counts := make(map[string]int)
		first := make(map[string]wikilink.Wikilink)
		var order []string
		for _, l := range n.links {
			if counts[l.Target] == 0 {
				order = append(order, l.Target)
				first[l.Target] = l
			}
			counts[l.Target]++
		}

		seenEdges := make(map[string]struct{})
		for _, target := range order {
			ref, ok := index[wikilink.NormalizeTitle(target)]
			if !ok {
				d, exists := dangling[target]
				if !exists {
					d = &DanglingLink{Target: target}
					dangling[target] = d
					danglingOrder = append(danglingOrder, target)
				}
				d.Sources = append(d.Sources, DanglingSource{
					NotePath:  n.meta.Path,
					NoteTitle: n.title,
					Count:     counts[target],
				})
				continue
			}

			// Distinct raw targets can normalise to the same note; keep
			// one edge per (source, resolved title).
			if _, dup := seenEdges[ref.title]; dup {
				continue
			}
			seenEdges[ref.title] = struct{}{}

			st.ForwardLinks[n.meta.Path] = append(st.ForwardLinks[n.meta.Path], ref.title)
			// Context is always captured; cached stats are shared between
			// callers that want it and callers that ignore it.
			entry := BacklinkEntry{
				SourcePath:  n.meta.Path,
				SourceTitle: n.title,
				Context:     wikilink.ExtractContext(n.body, first[target], opts.ContextLength),
			}
			st.Backlinks[ref.title] = append(st.Backlinks[ref.title], entry)
			backlinked[ref.path] = struct{}{}
			st.UniqueConnections++
		}
	}

	sort.Strings(danglingOrder)
	for _, target := range danglingOrder {
		st.DanglingLinks = append(st.DanglingLinks, *dangling[target])
	}

	for _, n := range notes {
		if n == nil {
			continue
		}
		if _, hasForward := st.ForwardLinks[n.meta.Path]; hasForward {
			continue
		}
		if _, hasBack := backlinked[n.meta.Path]; hasBack {
			continue
		}
		st.OrphanNotes = append(st.OrphanNotes, n.meta.Path)
	}

	return st, files, nil
}

// Notes returns the parsed note inventory for dir: path, basename, title,
// and mention count per file. Used by the repair index snapshot.
func (s *Service) Notes(dir string) ([]models.NoteFile, error) {
	metas, err := s.provider.List(dir)
	if err != nil {
		return nil, err
	}
	out := make([]models.NoteFile, 0, len(metas))
	for _, m := range metas {
		data, readErr := s.provider.Read(m.Path)
		if readErr != nil {
			continue
		}
		fm, body := wikilink.SplitFrontmatter(data)
		stem := strings.TrimSuffix(filepath.Base(m.Path), ".md")
		out = append(out, models.NoteFile{
			Path:     m.Path,
			Basename: filepath.Base(m.Path),
			Title:    wikilink.TitleFrom(fm, stem),
			Content:  body,
			Mentions: wikilink.CountMentions(body),
		})
	}
	return out, nil
}

// BacklinksFor returns the backlink entries for title under normalised
// comparison, or an empty slice when the note is unknown or unreferenced.
func (s *Service) BacklinksFor(dir, title string) ([]BacklinkEntry, error) {
	st, err := s.Analyze(dir, Options{})
	if err != nil {
		return nil, err
	}
	for key, entries := range st.Backlinks {
		if wikilink.IsSameNote(key, title) {
			return entries, nil
		}
	}
	return []BacklinkEntry{}, nil
}

// DanglingLinks returns every unmatched wikilink target in dir.
func (s *Service) DanglingLinks(dir string) ([]DanglingLink, error) {
	st, err := s.Analyze(dir, Options{})
	if err != nil {
		return nil, err
	}
	return st.DanglingLinks, nil
}

// OrphanNotes returns every note with neither incoming nor outgoing links.
func (s *Service) OrphanNotes(dir string) ([]string, error) {
	st, err := s.Analyze(dir, Options{})
	if err != nil {
		return nil, err
	}
	return st.OrphanNotes, nil
}

// Quick returns the numeric projection of the full stats.
func (s *Service) Quick(dir string) (QuickStats, error) {
	st, err := s.Analyze(dir, Options{})
	if err != nil {
		return QuickStats{}, err
	}
	return QuickStats{
		NoteCount:         st.NoteCount,
		UniqueConnections: st.UniqueConnections,
		TotalMentions:     st.TotalMentions,
		DanglingCount:     len(st.DanglingLinks),
		OrphanCount:       len(st.OrphanNotes),
	}, nil
}

// Invalidate drops the cached stats for dir.
func (s *Service) Invalidate(dir string) {
	s.cache.Delete(cacheKey(dir))
}

// InvalidateAll drops every cached analysis, whole-vault and per-directory
// alike. Used when a file appears or disappears and the affected directory
// keys cannot be derived from the event.
func (s *Service) InvalidateAll() {
	s.cache.Clear()
}

// InvalidateFile drops every cached entry that depends on the given
// absolute file path. Used by the vault watcher.
func (s *Service) InvalidateFile(path string) []string {
	return s.cache.InvalidateByFile(path)
}

// CacheStats exposes cache occupancy for the observability endpoint.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}
