package reconstruct

import (
	"fmt"
	"strings"

	"github.com/demoghost/replay/internal/util"
	"github.com/demoghost/replay/pkg/ghost"
)

// Counter-Strike localization markers the server substitutes for chat
// destinations. The order matters when matching: the all-spec marker
// contains the all marker as a prefix.
const (
	chatMarkerAllSpec  = "#Cstrike_Chat_AllSpec"
	chatMarkerSpecTeam = "#Cstrike_Chat_SpecTeam"
	chatMarkerAll      = "#Cstrike_Chat_All"
)

// maxChatHeader is the highest byte value treated as a segment header.
// Print codes 0-4 select the HUD color a segment renders with.
const maxChatHeader = 4

// decodeChatChunks splits a SayText payload (sender byte already dropped)
// into ordered colored segments. Control bytes 0-4 start a new segment; a
// leading run of plain bytes becomes an implicit "system" segment with
// header 1. Localization markers are rewritten to the plain-text prefixes
// players see on the HUD.
func decodeChatChunks(data []byte, sender string) []ghost.ChatSegment {
	var segments []ghost.ChatSegment

	emit := func(kind uint8, raw []byte) {
		if len(raw) == 0 {
			return
		}

		text := util.LossyString(raw)

		switch {
		case strings.Contains(text, chatMarkerAllSpec):
			text = fmt.Sprintf("*SPEC* %s: %s", sender, strings.Replace(text, chatMarkerAllSpec, "", 1))
		case strings.Contains(text, chatMarkerSpecTeam):
			text = fmt.Sprintf("(Spectator) %s: %s", sender, strings.Replace(text, chatMarkerSpecTeam, "", 1))
		case strings.Contains(text, chatMarkerAll):
			text = fmt.Sprintf("%s: %s", sender, strings.Replace(text, chatMarkerAll, "", 1))
		}

		text = util.StripNewlines(text)
		if text == "" {
			return
		}

		segments = append(segments, ghost.ChatSegment{Kind: kind, Text: text})
	}

	i := 0

	// Bytes before the first header form an implicit system segment.
	start := i
	for i < len(data) && !isChatHeader(data[i]) {
		i++
	}
	emit(1, data[start:i])

	for i < len(data) {
		kind := data[i]
		i++

		start := i
		for i < len(data) && !isChatHeader(data[i]) {
			i++
		}
		emit(kind, data[start:i])
	}

	return segments
}

func isChatHeader(b byte) bool {
	return b <= maxChatHeader
}
