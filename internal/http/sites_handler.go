package http

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"navlens/internal/sites"
)

// SitesIndexAction lists every registered site.
func SitesIndexAction(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	all, err := sites.ListSites(db)
	if err != nil {
		ctx.Logger.Error("Failed to list sites", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}
	if all == nil {
		all = []sites.Site{}
	}
	return ctx.JSON(all)
}

type createSiteParams struct {
	Name    string `json:"name" form:"name"`
	Domain  string `json:"domain" form:"domain"`
	BaseURL string `json:"baseUrl" form:"baseUrl"`
}

// SiteCreateAction registers a new site and returns it with its freshly
// assigned public id.
func SiteCreateAction(ctx *cartridge.Context) error {
	var params createSiteParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).SendString("invalid request")
	}

	params.Domain = strings.ToLower(strings.TrimSpace(params.Domain))
	if !sites.ValidateDomain(params.Domain) {
		return ctx.Status(http.StatusBadRequest).SendString("invalid domain")
	}
	if params.Name == "" {
		params.Name = params.Domain
	}

	site := &sites.Site{
		Name:    params.Name,
		Domain:  params.Domain,
		BaseURL: params.BaseURL,
	}
	db := ctx.DBManager.GetConnection()
	if err := sites.CreateSite(db, site); err != nil {
		ctx.Logger.Error("Failed to create site", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}

	ctx.Logger.Info("Site created",
		slog.String("domain", site.Domain),
		slog.String("publicId", site.PublicID))
	return ctx.Status(http.StatusCreated).JSON(site)
}
