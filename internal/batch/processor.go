package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"mh-asset-tools/internal/arc"
	"mh-asset-tools/internal/ge"
	"mh-asset-tools/internal/logging"
	"mh-asset-tools/internal/mod"
	"mh-asset-tools/internal/obj"
	"mh-asset-tools/internal/pack"
	"mh-asset-tools/internal/pmo"
	"mh-asset-tools/internal/tex"
	"mh-asset-tools/internal/texture"
	"mh-asset-tools/internal/tmh"
)

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir      string
	Format         texture.Format
	MaxTextureSize int
	FlipTextures   bool
	MaxCommands    int
	Workers        int
	ArcKey         []byte // for encrypted archives

	// ProgressBar draws a bar on stderr; otherwise progress lines go to Log.
	ProgressBar bool
	Log         io.Writer
}

// Result holds the outcome of converting one file.
type Result struct {
	Source  string   `json:"source"`
	Kind    Kind     `json:"kind"`
	Outputs []string `json:"outputs,omitempty"`
	Parts   int      `json:"parts,omitempty"`
	Skipped int      `json:"skipped_parts,omitempty"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
}

// Run converts all jobs using a worker pool. Results are in job order.
func Run(cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64
	workers := max(cfg.Workers, 1)

	start := time.Now()

	var bar *progressbar.ProgressBar
	if cfg.ProgressBar {
		bar = progressbar.Default(int64(total), "converting")
		defer bar.Close()
	}

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 && bar == nil && cfg.Log != nil {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Fprintf(cfg.Log, "  [%d/%d] %.1f files/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = Process(cfg, jobs[idx])
				processed.Add(1)
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

// Process converts one file. Output paths mirror job.Rel below the output
// directory.
func Process(cfg Config, job Job) Result {
	res := Result{Source: job.Rel, Kind: job.Kind}
	if cfg.Format == "" {
		cfg.Format = texture.PNG
	}
	base := filepath.Join(cfg.OutputDir, strings.TrimSuffix(job.Rel, filepath.Ext(job.Rel)))
	log := logging.Logger()
	log.Info("batch: convert", "file", job.Rel, "kind", string(job.Kind))

	var err error
	switch job.Kind {
	case KindPMO:
		err = convertPMO(cfg, job.Path, base, &res)
	case KindMOD:
		err = convertMOD(job.Path, base, &res)
	case KindTEX:
		err = convertTEX(cfg, job.Path, base, &res)
	case KindTMH:
		err = convertTMH(cfg, job.Path, base, &res)
	case KindARC:
		err = convertARC(cfg, job.Path, base, &res)
	case KindData:
		err = convertData(cfg, job.Path, base, &res)
	default:
		err = fmt.Errorf("batch: unsupported file %s", job.Rel)
	}
	if err != nil {
		res.Error = err.Error()
		log.Warn("batch: failed", "file", job.Rel, "err", err)
		return res
	}
	res.Success = true
	return res
}

func convertPMO(cfg Config, path, base string, res *Result) error {
	f, err := pmo.ReadFile(path)
	if err != nil {
		return err
	}
	opts := ge.Options{MaxCommands: cfg.MaxCommands}
	mtlName := filepath.Base(base) + ".mtl"

	return writeOBJ(base+".obj", res, func(w *obj.Writer) error {
		if err := w.MaterialLib(mtlName); err != nil {
			return err
		}
		textures := map[int]bool{}
		for _, g := range f.Parts() {
			res.Parts++
			mesh, err := f.Decode(g, opts)
			if err != nil {
				res.Skipped++
				logging.Logger().Warn("batch: skip part", "file", path, "part", g.Name(), "err", err)
				continue
			}
			material := ""
			if g.Texture >= 0 {
				material = materialName(g.Texture)
				textures[g.Texture] = true
			}
			if err := w.WriteMesh(g.Name(), material, mesh); err != nil {
				return err
			}
		}
		if len(textures) == 0 {
			return nil
		}
		ids := make([]int, 0, len(textures))
		for id := range textures {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		mats := make([]obj.Material, len(ids))
		for i, id := range ids {
			mats[i] = obj.Material{Name: materialName(id), Texture: filepath.Base(textureFile(base, id, cfg.Format))}
		}
		return writeMTL(filepath.Join(filepath.Dir(base), mtlName), mats, res)
	})
}

func convertMOD(path, base string, res *Result) error {
	f, err := mod.ReadFile(path)
	if err != nil {
		return err
	}
	return writeOBJ(base+".obj", res, func(w *obj.Writer) error {
		for _, p := range f.Parts() {
			res.Parts++
			mesh, err := f.Decode(p)
			if err != nil {
				res.Skipped++
				logging.Logger().Warn("batch: skip part", "file", path, "part", p.Name(), "err", err)
				continue
			}
			if err := w.WriteMesh(p.Name(), "", mesh); err != nil {
				return err
			}
		}
		return nil
	})
}

func convertTEX(cfg Config, path, base string, res *Result) error {
	t, err := tex.ReadFile(path)
	if err != nil {
		return err
	}
	res.Parts = len(t.Faces)
	img := texture.Stack(t.Faces)
	if cfg.FlipTextures {
		img = texture.FlipVertical(img)
	}
	img = texture.Fit(img, cfg.MaxTextureSize)

	out := base + cfg.Format.Ext()
	if err := texture.WriteFile(out, img); err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, out)
	return nil
}

// convertTMH writes every image of a texture package next to base, named
// the way convertPMO's material library refers to them.
func convertTMH(cfg Config, path, base string, res *Result) error {
	f, err := tmh.ReadFile(path)
	if err != nil {
		return err
	}
	res.Parts = len(f.Images)
	for i, im := range f.Images {
		img := im.Image
		if cfg.FlipTextures {
			img = texture.FlipVertical(img)
		}
		img = texture.Fit(img, cfg.MaxTextureSize)

		out := textureFile(base, i, cfg.Format)
		if err := texture.WriteFile(out, img); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, out)
	}
	return nil
}

// convertARC extracts the archive into a directory named after it, then
// converts the models and textures it contained.
func convertARC(cfg Config, path, base string, res *Result) error {
	a, err := arc.ReadFileKey(path, cfg.ArcKey)
	if err != nil {
		return err
	}
	written, err := a.Extract(base)
	if err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, written...)
	res.Parts = len(written)
	convertExtracted(cfg, written, res)
	return nil
}

// convertData splits a DATA.BIN image into a directory named after it,
// then converts the entries whose contents were recognised.
func convertData(cfg Config, path, base string, res *Result) error {
	d, err := pack.ReadDataFile(path)
	if err != nil {
		return err
	}
	written, err := d.Extract(base)
	if err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, written...)
	res.Parts = len(written)
	convertExtracted(cfg, written, res)
	return nil
}

// convertExtracted converts files unpacked from a container in place. A
// failure skips that file only.
func convertExtracted(cfg Config, paths []string, res *Result) {
	for _, p := range paths {
		sub := Result{}
		stem := strings.TrimSuffix(p, filepath.Ext(p))
		var err error
		switch KindOf(p) {
		case KindPMO:
			err = convertPMO(cfg, p, stem, &sub)
		case KindMOD:
			err = convertMOD(p, stem, &sub)
		case KindTEX:
			err = convertTEX(cfg, p, stem, &sub)
		case KindTMH:
			err = convertTMH(cfg, p, stem, &sub)
		case KindARC:
			err = convertARC(cfg, p, stem, &sub)
		default:
			continue
		}
		if err != nil {
			res.Skipped++
			logging.Logger().Warn("batch: skip extracted file", "file", p, "err", err)
			continue
		}
		res.Outputs = append(res.Outputs, sub.Outputs...)
	}
}

// writeOBJ creates path and runs fill against an OBJ writer on it. The file
// is removed if fill fails.
func writeOBJ(path string, res *Result, fill func(*obj.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("batch: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: create %s: %w", path, err)
	}
	w := obj.NewWriter(f)
	err = fill(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	res.Outputs = append(res.Outputs, path)
	return nil
}

func materialName(id int) string {
	return fmt.Sprintf("texture%04d", id)
}

// textureFile is the image path for texture id of the model or package at
// base.
func textureFile(base string, id int, format texture.Format) string {
	return base + "_" + materialName(id) + format.Ext()
}

func writeMTL(path string, mats []obj.Material, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: create %s: %w", path, err)
	}
	if err := obj.WriteMaterials(f, mats); err != nil {
		f.Close()
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, path)
	return nil
}
