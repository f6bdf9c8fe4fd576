package codegen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"predictd/internal/common/fsutil"
)

// DeployConfig is the part of the deployment config file RenderDeployment
// reads.
type DeployConfig struct {
	Deployment struct {
		Params map[string]any `yaml:"params"`
	} `yaml:"deployment"`
}

// DeployOverrides replace the matching params when non-empty.
type DeployOverrides struct {
	ResourceName string
	Namespace    string
}

// RenderDeployment renders templatePath with deployment.params from the YAML
// at configPath and writes the result to outPath.
func RenderDeployment(templatePath, configPath, outPath string, ov DeployOverrides) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var cfg DeployConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	params := cfg.Deployment.Params
	if params == nil {
		params = map[string]any{}
	}
	if ov.ResourceName != "" {
		params["resource_name"] = ov.ResourceName
	}
	if ov.Namespace != "" {
		params["namespace"] = ov.Namespace
	}
	out, err := render("deployment", string(tmpl), params)
	if err != nil {
		return err
	}
	p, err := fsutil.ExpandHome(outPath)
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o644)
}
