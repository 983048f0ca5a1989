package app

import (
	"fmt"
	"io/fs"

	uihttp "ledger/internal/http"
	"ledger/internal/router"
	"ledger/web"
)

// Plugin extends an App before it is mounted.
type Plugin interface {
	Name() string
	Install(a *App) error
}

type componentsPlugin struct {
	templates fs.FS
	static    fs.FS
}

// Components installs the embedded page templates and static assets.
func Components() Plugin {
	return ComponentsFrom(web.TemplatesFS, web.StaticFS)
}

// ComponentsFrom installs templates from templates/*.html in templates and
// assets from the static/ directory of static.
func ComponentsFrom(templates, static fs.FS) Plugin {
	return componentsPlugin{templates: templates, static: static}
}

func (componentsPlugin) Name() string { return "components" }

func (p componentsPlugin) Install(a *App) error {
	tmpl, err := uihttp.ParseTemplates(p.templates)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	sub, err := fs.Sub(p.static, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}
	a.templates = tmpl
	a.static = sub
	return nil
}

type routerPlugin struct {
	routes []router.Route
}

// Router installs the application route table.
func Router() Plugin {
	return routerPlugin{routes: router.DefaultRoutes()}
}

func (routerPlugin) Name() string { return "router" }

func (p routerPlugin) Install(a *App) error {
	r, err := router.New(p.routes)
	if err != nil {
		return err
	}
	a.router = r
	return nil
}
