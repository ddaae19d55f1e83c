// Package mediaurl decides whether outgoing chat text is a link to an image,
// a link to a video, or plain text.
package mediaurl

import (
	"net/url"
	"regexp"
)

// Kind of an outgoing chat message.
type Kind int

const (
	Text Kind = iota
	Image
	Video
)

var (
	imageExt = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)$`)
	videoExt = regexp.MustCompile(`(?i)\.(mp4|webm|ogg)$`)
)

// Classify returns Image or Video when s is an absolute URL whose path ends
// in a known extension, and Text otherwise. The query string is ignored.
func Classify(s string) Kind {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return Text
	}
	switch {
	case imageExt.MatchString(u.Path):
		return Image
	case videoExt.MatchString(u.Path):
		return Video
	default:
		return Text
	}
}

// Preview is the conversation preview line for a message of kind k.
func Preview(k Kind, text string) string {
	switch k {
	case Image:
		return "Image"
	case Video:
		return "Video"
	default:
		return text
	}
}

// IsVideoLink reports whether s can be used as the video of a short: a
// direct video file or a link to a supported streaming site.
func IsVideoLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if videoExt.MatchString(u.Path) {
		return true
	}
	switch u.Hostname() {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be",
		"twitch.tv", "www.twitch.tv", "clips.twitch.tv":
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "text"
	}
}
