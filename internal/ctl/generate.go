package ctl

import "predictd/internal/codegen"

func generateContainer(opts codegen.ContainerOptions) ([]string, error) {
	return codegen.GenerateContainer(opts)
}

func renderDeployment(templatePath, configPath, outPath string, ov codegen.DeployOverrides) error {
	return codegen.RenderDeployment(templatePath, configPath, outPath, ov)
}
