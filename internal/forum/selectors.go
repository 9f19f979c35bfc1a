package forum

import (
	"regexp"

	"github.com/andybalholm/cascadia"
)

// Structural markers of a thread page. Class markers use substring
// matching so that modifier classes ("message--post", "p-title-value
// js-title") do not defeat them.
var (
	// titleSelector matches the thread heading.
	titleSelector = cascadia.MustCompile(`h1[class*="p-title-value"]`)

	// metaListSelector matches definition lists holding thread metadata.
	metaListSelector = cascadia.MustCompile(`dl[class*="pairs"]`)

	// postSelector matches a post container. The data-content attribute
	// separates real posts from other elements styled as messages.
	postSelector = cascadia.MustCompile(`article[class*="message"][data-content]`)

	usernameSelector      = cascadia.MustCompile(`[class*="username"]`)
	userTitleSelector     = cascadia.MustCompile(`[class*="userTitle"]`)
	datetimeSelector      = cascadia.MustCompile(`[datetime]`)
	bodySelector          = cascadia.MustCompile(`div[class*="bbWrapper"]`)
	reactionCountSelector = cascadia.MustCompile(`[class*="reaction-count"]`)

	// linkSelector matches every element carrying a link target.
	linkSelector = cascadia.MustCompile(`[href]`)

	// attachmentSelector matches attachment containers.
	attachmentSelector = cascadia.MustCompile(`[class*="attachment"]`)
)

// Labels of the metadata entries, compared case-insensitively.
const (
	starterLabel   = "thread starter"
	startDateLabel = "start date"
)

// filenamePattern matches text shaped like a file name: something
// followed by a dot and an extension that contains at least one letter,
// so "1.5" is not taken for a file.
var filenamePattern = regexp.MustCompile(`^.*\S\.\w*[A-Za-z]\w*$`)
