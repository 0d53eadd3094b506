// Package codegen generates Python library skeletons by driving an
// Open Interpreter container with docker.
package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// Config holds container-generation settings.
type Config struct {
	PythonVersion string
	CacheDir      string
	ImageName     string
	Timeout       time.Duration
	OpenAIAPIKey  string
	Model         string
}

// Spec describes the library to generate.
type Spec struct {
	Name              string
	PythonVersion     string
	Description       string
	ReadmeContent     string
	ExtraRequirements []string
}

// Runner builds and runs the generation container.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// NewRunner creates a runner and verifies docker is available.
func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PythonVersion == "" {
		cfg.PythonVersion = "3.11"
	}
	if cfg.ImageName == "" {
		cfg.ImageName = fmt.Sprintf("paipi-generator-%d", time.Now().Unix())
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "pypi_cache"
	}

	out, err := exec.Command("docker", "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("docker is not installed or not running: %w", err)
	}
	logger.Info("docker found", "version", strings.TrimSpace(string(out)))

	return &Runner{cfg: cfg, logger: logger}, nil
}

const dockerfileTemplate = `FROM python:%s-slim

RUN apt-get update && apt-get install -y \
    git \
    curl \
    build-essential \
    && rm -rf /var/lib/apt/lists/*

WORKDIR /workspace

RUN pip install --no-cache-dir open-interpreter

RUN mkdir -p /output

ENV PYTHONUNBUFFERED=1

CMD ["python", "-c", "import interpreter; print('Open Interpreter ready')"]
`

// generateScript is the python program executed inside the container. It
// feeds the spec to Open Interpreter and writes the produced tree to /output.
var generateScript = template.Must(template.New("generate_library.py").Parse(`import json
import os

from interpreter import interpreter

interpreter.auto_run = True
interpreter.llm.model = os.environ.get("MODEL", "gpt-4")

SPEC = json.loads(r'''{{.SpecJSON}}''')

PROMPT = """
Create a complete, installable Python library named '{{.Name}}' under /output/{{.Name}}.
Target Python {{.PythonVersion}}.

Package description:
{{.Description}}

The library must implement everything this README promises:
---
{{.Readme}}
---
{{if .Requirements}}
Additional requirements to include in the package dependencies: {{.Requirements}}.
{{end}}
Produce a src layout with pyproject.toml, the package sources, and tests.
When finished write /output/generation_summary.json with keys "name",
"status" and "generation_timestamp".
"""

interpreter.chat(PROMPT)
`))

type scriptData struct {
	SpecJSON      string
	Name          string
	PythonVersion string
	Description   string
	Readme        string
	Requirements  string
}

// Generate builds the container image, runs the generation script and returns
// the directory containing the produced library tree.
func (r *Runner) Generate(ctx context.Context, spec Spec) (string, error) {
	if spec.Name == "" {
		return "", fmt.Errorf("library spec needs a name")
	}
	if spec.PythonVersion == "" {
		spec.PythonVersion = r.cfg.PythonVersion
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "paipi-codegen-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := r.writeBuildContext(workDir, spec); err != nil {
		return "", err
	}

	if err := r.buildImage(ctx, workDir); err != nil {
		return "", err
	}
	defer r.removeImage()

	outputDir := filepath.Join(r.cfg.CacheDir, fmt.Sprintf("output_%d", time.Now().Unix()))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if err := r.runContainer(ctx, workDir, outputDir); err != nil {
		return "", err
	}

	r.logger.Info("library generation finished", "library", spec.Name, "output", outputDir)
	return outputDir, nil
}

func (r *Runner) writeBuildContext(workDir string, spec Spec) error {
	dockerfile := fmt.Sprintf(dockerfileTemplate, spec.PythonVersion)
	if err := os.WriteFile(filepath.Join(workDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return fmt.Errorf("write dockerfile: %w", err)
	}

	script, err := RenderScript(spec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(workDir, "generate_library.py"), script, 0o644); err != nil {
		return fmt.Errorf("write generation script: %w", err)
	}
	return nil
}

// RenderScript produces the in-container generation program for a spec.
func RenderScript(spec Spec) ([]byte, error) {
	readme := StripEmoji(spec.ReadmeContent)

	specJSON := fmt.Sprintf(`{"name": %q, "python_version": %q}`, spec.Name, spec.PythonVersion)

	var b strings.Builder
	err := generateScript.Execute(&b, scriptData{
		SpecJSON:      specJSON,
		Name:          spec.Name,
		PythonVersion: spec.PythonVersion,
		Description:   spec.Description,
		Readme:        readme,
		Requirements:  strings.Join(spec.ExtraRequirements, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("render generation script: %w", err)
	}
	return []byte(b.String()), nil
}

func (r *Runner) buildImage(ctx context.Context, workDir string) error {
	r.logger.Info("building generation image", "image", r.cfg.ImageName)

	cmd := exec.CommandContext(ctx, "docker", "build", "-t", r.cfg.ImageName, workDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker build failed: %w: %s", err, string(out))
	}
	return nil
}

func (r *Runner) runContainer(ctx context.Context, workDir, outputDir string) error {
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	script := filepath.Join(workDir, "generate_library.py")

	args := []string{
		"run", "--rm",
		"--name", r.cfg.ImageName + "_run",
		"-v", absOutput + ":/output",
		"-v", script + ":/workspace/generate_library.py",
		"-e", "MODEL=" + r.cfg.Model,
	}
	if r.cfg.OpenAIAPIKey != "" {
		args = append(args, "-e", "OPENAI_API_KEY="+r.cfg.OpenAIAPIKey)
	}
	args = append(args, r.cfg.ImageName, "python", "/workspace/generate_library.py")

	logPath := filepath.Join(absOutput, "container.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create container log: %w", err)
	}
	defer logFile.Close()

	r.logger.Info("running generation container", "image", r.cfg.ImageName, "log", logPath)

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("container execution timed out after %s", r.cfg.Timeout)
		}
		return fmt.Errorf("container execution failed: %w (log at %s)", err, logPath)
	}
	return nil
}

func (r *Runner) removeImage() {
	if err := exec.Command("docker", "rmi", r.cfg.ImageName).Run(); err != nil {
		r.logger.Warn("removing generation image failed", "image", r.cfg.ImageName, "error", err)
	}
}

// StripEmoji removes emoji code points that derail the in-container model.
func StripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F600 && r <= 0x1F64F, // emoticons
			r >= 0x1F300 && r <= 0x1F5FF, // symbols and pictographs
			r >= 0x1F680 && r <= 0x1F6FF, // transport and map symbols
			r >= 0x1F1E0 && r <= 0x1F1FF: // flags
			return -1
		}
		return r
	}, s)
}
