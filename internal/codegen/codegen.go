// Package codegen renders the files needed to ship a model service as a
// container image and to deploy it on Kubernetes.
package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"predictd/internal/common/fsutil"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	KindBundle = "bundle"
	KindProxy  = "proxy"

	defaultPort      = 8551
	defaultModelFile = "model.json"
	defaultImageName = "predictd-model"
)

// ContainerOptions parameterise GenerateContainer.
type ContainerOptions struct {
	Dir           string
	BaseImageName string
	BaseImageTag  string
	// Kind is bundle (alias python) or proxy.
	Kind           string
	ImageName      string
	Port           int
	ModelFile      string
	HostedModelURL string
	SoftScores     bool
}

// output maps an embedded template to the file it produces.
type output struct {
	tmpl string
	path string
	mode os.FileMode
	// raw files are copied without rendering.
	raw bool
}

var containerFiles = []output{
	{tmpl: "Dockerfile.tmpl", path: "Dockerfile", mode: 0o644},
	{tmpl: "container_util.sh.tmpl", path: "container_util.sh", mode: 0o755},
	{tmpl: "predictd.yaml.tmpl", path: "predictd.yaml", mode: 0o644},
	{tmpl: "metadata.yml.tmpl", path: filepath.Join("model", "metadata.yml"), mode: 0o644},
	{tmpl: "dockerignore.tmpl", path: ".dockerignore", mode: 0o644},
	{tmpl: "deployment.yaml.tmpl", path: "deployment.yaml.tmpl", mode: 0o644, raw: true},
}

func (o ContainerOptions) withDefaults() (ContainerOptions, error) {
	if o.Dir == "" {
		return o, fmt.Errorf("target dir is required")
	}
	if o.BaseImageName == "" {
		return o, fmt.Errorf("base image name is required")
	}
	if o.BaseImageTag == "" {
		o.BaseImageTag = "latest"
	}
	switch strings.ToLower(o.Kind) {
	case "", KindBundle, "python":
		o.Kind = KindBundle
	case KindProxy:
		o.Kind = KindProxy
	default:
		return o, fmt.Errorf("unknown service kind %q", o.Kind)
	}
	if o.ImageName == "" {
		o.ImageName = defaultImageName
	}
	if o.Port <= 0 {
		o.Port = defaultPort
	}
	if o.ModelFile == "" {
		o.ModelFile = defaultModelFile
	}
	return o, nil
}

func (o ContainerOptions) data() map[string]any {
	return map[string]any{
		"BaseImageName":  o.BaseImageName,
		"BaseImageTag":   o.BaseImageTag,
		"Kind":           o.Kind,
		"ImageName":      o.ImageName,
		"Port":           o.Port,
		"ModelFile":      o.ModelFile,
		"HostedModelURL": o.HostedModelURL,
		"SoftScores":     o.SoftScores,
	}
}

// GenerateContainer writes the container files into opts.Dir, creating it
// if needed. Existing files are overwritten. It returns the written paths.
func GenerateContainer(opts ContainerOptions) ([]string, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	dir, err := fsutil.AbsPath(o.Dir)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(filepath.Join(dir, "model")); err != nil {
		return nil, err
	}
	data := o.data()
	written := make([]string, 0, len(containerFiles))
	for _, f := range containerFiles {
		src, err := templatesFS.ReadFile("templates/" + f.tmpl)
		if err != nil {
			return written, err
		}
		out := src
		if !f.raw {
			if out, err = render(f.tmpl, string(src), data); err != nil {
				return written, err
			}
		}
		p := filepath.Join(dir, f.path)
		if err := os.WriteFile(p, out, f.mode); err != nil {
			return written, fmt.Errorf("write %s: %w", f.path, err)
		}
		// WriteFile keeps the mode of an existing file.
		if err := os.Chmod(p, f.mode); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

// render executes src with data; referencing a missing key is an error.
func render(name, src string, data any) ([]byte, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
