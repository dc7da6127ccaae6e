package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"

	"shallot/internal/db"
	"shallot/internal/models"
	"shallot/internal/utils"
)

type RSSHandler struct{}

func NewRSSHandler() *RSSHandler {
	return &RSSHandler{}
}

func siteBaseURL() string {
	if base := os.Getenv("SITE_BASE_URL"); base != "" {
		return base
	}
	return "http://localhost:8080"
}

// Community 社区订阅源：GET /c/:name/rss,最新 25 帖
func (h *RSSHandler) Community(c *gin.Context) {
	var community models.Community
	if err := db.DB.Where("name = ?", c.Param("name")).First(&community).Error; err != nil {
		abortWithError(c, err)
		return
	}

	var posts []models.Post
	if err := db.DB.Where("community_id = ?", community.ID).
		Preload("User").
		Order("created_at DESC").
		Limit(25).
		Find(&posts).Error; err != nil {
		abortWithError(c, err)
		return
	}

	base := siteBaseURL()
	rss := &feeds.Feed{
		Title:       fmt.Sprintf("c/%s - %s", community.Name, community.Title),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/c/%s", base, community.Name)},
		Description: community.Description,
		Created:     time.Now(),
	}

	for i := range posts {
		p := &posts[i]
		rss.Items = append(rss.Items, &feeds.Item{
			Id:          p.Pid,
			Title:       p.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/p/%s", base, p.Pid)},
			Description: utils.RenderMarkdown(p.Content),
			Author:      &feeds.Author{Name: p.User.Username},
			Created:     p.CreatedAt,
		})
	}

	out, err := rss.ToRss()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
}
