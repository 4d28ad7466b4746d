package utils

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/BlobEmoji/Artemis/model"
)

// StringPtr returns a pointer to the given string.
// This is a helper function for discordgo fields that require a *string.
func StringPtr(s string) *string {
	return &s
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractURLs returns every link in content, in order of appearance.
func ExtractURLs(content string) []string {
	return urlPattern.FindAllString(content, -1)
}

// FileExtension returns the lower-cased extension of the URL path without
// the dot, ignoring any query string. ok is false when there is none.
func FileExtension(rawURL string) (ext string, ok bool) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext = strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return "", false
	}
	return strings.ToLower(ext), true
}

// DiscordFiles converts attachments into discordgo upload files, skipping nils.
func DiscordFiles(atts ...*model.Attachment) []*discordgo.File {
	var files []*discordgo.File
	for _, a := range atts {
		if a == nil {
			continue
		}
		files = append(files, &discordgo.File{
			Name:        a.Name,
			ContentType: a.ContentType,
			Reader:      bytes.NewReader(a.Data),
		})
	}
	return files
}
