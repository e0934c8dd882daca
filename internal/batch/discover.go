package batch

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Kind is the container type of an input file.
type Kind string

const (
	KindPMO     Kind = "pmo"
	KindMOD     Kind = "mod"
	KindTEX     Kind = "tex"
	KindTMH     Kind = "tmh"
	KindARC     Kind = "arc"
	KindData    Kind = "data"
	KindUnknown Kind = ""
)

// KindOf classifies a path by extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pmo":
		return KindPMO
	case ".mod":
		return KindMOD
	case ".tex":
		return KindTEX
	case ".tmh":
		return KindTMH
	case ".arc":
		return KindARC
	case ".bin":
		return KindData
	}
	return KindUnknown
}

// Job is one input file.
type Job struct {
	Path string // as found on disk
	Rel  string // relative to the input directory
	Kind Kind
}

// Discover walks dir and returns every convertible file, sorted by path.
// Directories named in skip are not entered.
func Discover(dir string, skip ...string) ([]Job, error) {
	skipAbs := make(map[string]bool, len(skip))
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			skipAbs[abs] = true
		}
	}

	var jobs []Job
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, err := filepath.Abs(path); err == nil && skipAbs[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		kind := KindOf(path)
		if kind == KindUnknown {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		jobs = append(jobs, Job{Path: path, Rel: rel, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Rel < jobs[j].Rel })
	return jobs, nil
}
