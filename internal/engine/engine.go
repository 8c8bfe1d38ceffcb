// Package engine orchestrates the pipeline: scan → UDIM resolution →
// channel classification → name extraction → consolidation → graph assembly.
// Stages 1–5 are pure and run per mesh directory across a bounded worker
// pool; stage 6 issues backend calls and runs on a background worker.
package engine

import (
	"context"
	"sort"
	"sync"

	"texforge/internal/catalog"
	"texforge/internal/channel"
	"texforge/internal/config"
	"texforge/internal/declare"
	"texforge/internal/errors"
	"texforge/internal/logging"
	"texforge/internal/material"
	"texforge/internal/report"
	"texforge/internal/scan"
	"texforge/internal/udim"
)

// Engine wires the pipeline stages together.
type Engine struct {
	cfg        *config.Config
	logger     *logging.Logger
	scanner    *scan.Scanner
	resolver   *udim.Resolver
	classifier *channel.Classifier
	extractor  *material.Extractor
	catalog    *catalog.Catalog // optional, nil disables persistence

	mu    sync.Mutex
	cache map[string]*ScanOutput // keyed by root; invalidated only by Refresh
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog attaches a persistent catalog. Scan results and run reports
// are stored there, and cached scans survive process restarts.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithScanner substitutes the directory scanner. Used by tests and by
// asset-service backed deployments.
func WithScanner(s *scan.Scanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// New builds an engine from configuration.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	resolver, err := udim.NewResolver(cfg.Udim.Conventions)
	if err != nil {
		return nil, err
	}
	classifier, err := channel.NewClassifier(
		cfg.Channels.Order, cfg.Channels.Keywords, cfg.Scan.Extensions, cfg.Channels.Strict)
	if err != nil {
		return nil, err
	}
	extractor, err := material.NewExtractor(cfg.Channels.Keywords)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		scanner:    scan.NewScanner(cfg.Scan.Extensions, cfg.Scan.IgnoreDirs),
		resolver:   resolver,
		classifier: classifier,
		extractor:  extractor,
		cache:      make(map[string]*ScanOutput),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ScanOutput is the result of one scan pass over a root.
type ScanOutput struct {
	Root        string                 `json:"root"`
	Signature   string                 `json:"signature"`
	Descriptors []*material.Descriptor `json:"descriptors"`
	Diagnostics []report.Diagnostic    `json:"diagnostics,omitempty"`
	FromCache   bool                   `json:"fromCache"`
}

// Scan walks root and produces consolidated material descriptors. Results
// are cached by tree signature; an unchanged tree is served from cache until
// Refresh is called.
func (e *Engine) Scan(ctx context.Context, root string) (*ScanOutput, error) {
	result, err := e.scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	if out := e.cachedScan(result.Root, result.Signature); out != nil {
		return out, nil
	}

	decls, err := declare.Load(result.Root)
	if err != nil {
		return nil, err
	}

	out := &ScanOutput{Root: result.Root, Signature: result.Signature}
	for _, se := range result.Errors {
		out.Diagnostics = append(out.Diagnostics, report.Diagnostic{
			Severity: report.SeverityError,
			Code:     errors.ScanFailed,
			Message:  se.Message,
			File:     se.Directory,
		})
	}

	fragments, diags := e.classifyListings(ctx, result.Listings, decls)
	out.Diagnostics = append(out.Diagnostics, diags...)

	descs, consDiags := material.Consolidate(fragments)
	out.Descriptors = descs
	out.Diagnostics = append(out.Diagnostics, consDiags...)

	e.logger.Info("scan complete", map[string]interface{}{
		"root":      result.Root,
		"materials": len(descs),
		"warnings":  len(out.Diagnostics),
	})

	e.storeScan(out)
	return out, nil
}

// classifyListings runs stages 2–4 for every directory listing. Independent
// mesh directories have no data dependency on each other, so listings fan
// out across workers; fragment order is restored by listing index afterward
// so scan output is deterministic.
func (e *Engine) classifyListings(ctx context.Context, listings []scan.Listing, decls *declare.Declarations) ([]material.Fragment, []report.Diagnostic) {
	type slot struct {
		frags []material.Fragment
		diags []report.Diagnostic
	}
	slots := make([]slot, len(listings))

	workers := e.cfg.Scan.Workers
	if workers > len(listings) {
		workers = len(listings)
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				slots[i].frags, slots[i].diags = e.classifyListing(listings[i], decls)
			}
		}()
	}

feed:
	for i := range listings {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	var frags []material.Fragment
	var diags []report.Diagnostic
	for _, s := range slots {
		frags = append(frags, s.frags...)
		diags = append(diags, s.diags...)
	}
	return frags, diags
}

// classifyListing turns one directory listing into material fragments.
// UDIM members group by canonical pattern first so a whole tile sequence
// forms a single fragment; remaining files pass through as single files.
func (e *Engine) classifyListing(listing scan.Listing, decls *declare.Declarations) ([]material.Fragment, []report.Diagnostic) {
	var frags []material.Fragment
	var diags []report.Diagnostic

	type seqGroup struct {
		resolution udim.Resolution
		files      []scan.TextureFile
	}
	sequences := make(map[string]*seqGroup)
	var seqOrder []string
	var singles []scan.TextureFile
	singleRes := make(map[string]udim.Resolution)

	for _, f := range listing.Files {
		res := e.resolver.Resolve(f.Filename)
		if len(res.AlsoMatched) > 0 {
			diags = append(diags, report.Diagnostic{
				Severity: report.SeverityWarning,
				Code:     errors.UdimAmbiguous,
				Message:  "filename matches multiple UDIM conventions; resolved as " + string(res.Convention),
				File:     f.Path(),
				Scope:    listing.MeshScope,
			})
		}
		if !res.Member {
			singles = append(singles, f)
			singleRes[f.Filename] = res
			continue
		}
		g, ok := sequences[res.CanonicalPattern]
		if !ok {
			g = &seqGroup{resolution: res}
			sequences[res.CanonicalPattern] = g
			seqOrder = append(seqOrder, res.CanonicalPattern)
		}
		g.files = append(g.files, f)
	}
	sort.Strings(seqOrder)

	for _, pattern := range seqOrder {
		g := sequences[pattern]
		sort.Slice(g.files, func(i, j int) bool { return g.files[i].Filename < g.files[j].Filename })
		sample := g.files[0]

		frag, fragDiags, ok := e.makeFragment(listing, sample, g.resolution, decls,
			material.UdimSequence(pattern, sample.Path(), listing.Directory))
		diags = append(diags, fragDiags...)
		if ok {
			frags = append(frags, frag)
		}
	}

	for _, f := range singles {
		frag, fragDiags, ok := e.makeFragment(listing, f, singleRes[f.Filename], decls,
			material.SingleFile(f.Path()))
		diags = append(diags, fragDiags...)
		if ok {
			frags = append(frags, frag)
		}
	}

	return frags, diags
}

// makeFragment classifies one file (or sequence sample) and extracts its
// candidate material name, honoring declaration overrides.
func (e *Engine) makeFragment(listing scan.Listing, f scan.TextureFile, res udim.Resolution, decls *declare.Declarations, ref material.TextureReference) (material.Fragment, []report.Diagnostic, bool) {
	var diags []report.Diagnostic

	override, hasOverride := decls.Lookup(f.Filename)
	if hasOverride && override.Ignore {
		return material.Fragment{}, diags, false
	}

	classifyName := f.Filename
	if res.Member {
		classifyName = res.Stripped
	}
	cls := e.classifier.Classify(classifyName)
	if hasOverride && override.HasRole {
		cls = channel.Classification{Role: override.Role}
	}

	if cls.Unclassified {
		if e.cfg.Channels.Strict {
			diags = append(diags, report.Diagnostic{
				Severity: report.SeverityWarning,
				Code:     errors.UnknownChannel,
				Message:  "no channel role matched in strict mode; file excluded",
				File:     f.Path(),
				Scope:    listing.MeshScope,
			})
		} else {
			e.logger.Debug("skipping unclassifiable file", map[string]interface{}{
				"file": f.Path(),
			})
		}
		return material.Fragment{}, diags, false
	}

	if cls.LowConfidence {
		diags = append(diags, report.Diagnostic{
			Severity: report.SeverityWarning,
			Code:     errors.LowConfidence,
			Message:  "no channel keyword matched; defaulted to base color",
			File:     f.Path(),
			Scope:    listing.MeshScope,
		})
	}

	name := e.extractor.Extract(f.Filename, res, cls)
	if hasOverride && override.Material != "" {
		name = override.Material
	}
	if name == "" {
		name = listing.MeshScope
	}

	return material.Fragment{
		MeshScope:     listing.MeshScope,
		CandidateName: name,
		Role:          cls.Role,
		Ref:           ref,
		SourceFile:    f.Path(),
		FromUdim:      res.Member,
		LowConfidence: cls.LowConfidence,
	}, diags, true
}

// cachedScan returns the cached output for a root when the signature still
// matches, consulting the in-memory cache first and the catalog second.
func (e *Engine) cachedScan(root, signature string) *ScanOutput {
	e.mu.Lock()
	if out, ok := e.cache[root]; ok && out.Signature == signature {
		e.mu.Unlock()
		cached := *out
		cached.FromCache = true
		return &cached
	}
	e.mu.Unlock()

	if e.catalog == nil {
		return nil
	}
	descs, diags, ok, err := e.catalog.LoadScan(root, signature)
	if err != nil {
		e.logger.Warn("catalog scan lookup failed", map[string]interface{}{
			"root": root, "error": err.Error(),
		})
		return nil
	}
	if !ok {
		return nil
	}
	out := &ScanOutput{
		Root:        root,
		Signature:   signature,
		Descriptors: descs,
		Diagnostics: diags,
		FromCache:   true,
	}
	e.mu.Lock()
	e.cache[root] = out
	e.mu.Unlock()
	return out
}

func (e *Engine) storeScan(out *ScanOutput) {
	e.mu.Lock()
	e.cache[out.Root] = out
	e.mu.Unlock()

	if e.catalog != nil {
		if err := e.catalog.SaveScan(out.Root, out.Signature, out.Descriptors, out.Diagnostics); err != nil {
			e.logger.Warn("catalog scan save failed", map[string]interface{}{
				"root": out.Root, "error": err.Error(),
			})
		}
	}
}

// Refresh clears the whole scan cache, memory and catalog both. There is no
// partial invalidation.
func (e *Engine) Refresh() error {
	e.mu.Lock()
	e.cache = make(map[string]*ScanOutput)
	e.mu.Unlock()

	if e.catalog != nil {
		return e.catalog.ClearScanCache()
	}
	return nil
}
