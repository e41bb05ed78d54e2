package services

import (
	"context"
	"encoding/xml"
	"strings"
	"time"
)

const (
	sitemapCacheKey = "sitemap.xml"
	sitemapCacheTTL = time.Hour
)

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

var staticPages = []sitemapURL{
	{Loc: "/", ChangeFreq: "daily", Priority: "1.0"},
	{Loc: "/directory", ChangeFreq: "daily", Priority: "1.0"},
	{Loc: "/about", ChangeFreq: "monthly", Priority: "0.5"},
	{Loc: "/sponsors", ChangeFreq: "monthly", Priority: "0.5"},
	{Loc: "/agents", ChangeFreq: "monthly", Priority: "0.5"},
}

type SitemapService struct {
	businesses BusinessStore
	cache      Cache
	siteURL    string
}

// NewSitemapService takes an optional cache
func NewSitemapService(businesses BusinessStore, cache Cache, siteURL string) *SitemapService {
	return &SitemapService{businesses: businesses, cache: cache, siteURL: strings.TrimRight(siteURL, "/")}
}

// Render returns the sitemap XML, cached for an hour
func (s *SitemapService) Render(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, sitemapCacheKey); err == nil && ok {
			return raw, nil
		}
	}

	businesses, err := s.businesses.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range staticPages {
		p.Loc = s.siteURL + p.Loc
		set.URLs = append(set.URLs, p)
	}
	for _, b := range businesses {
		if b.Slug == "" {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.siteURL + "/business/" + b.Slug,
			LastMod:    b.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	out := append([]byte(xml.Header), body...)
	if s.cache != nil {
		logIfErr(s.cache.Set(ctx, sitemapCacheKey, out, sitemapCacheTTL), "Failed to cache sitemap")
	}
	return out, nil
}
