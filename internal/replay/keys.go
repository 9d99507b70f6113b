package replay

import (
	"fmt"
	"net/url"
	"strings"
)

// LinkPrefix is the public route replay links point at
const LinkPrefix = "/api/v1/replays/"

// MakeKey builds the object key of a replay: the file name without its
// extension, then "#", the game id and ".rec".
func MakeKey(fileName string, gameID int64) string {
	base := fileName
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 {
		base = base[:i]
	}
	return fmt.Sprintf("%s#%d.rec", base, gameID)
}

// KeyForMap is the key of a replay uploaded together with a report.
func KeyForMap(mapName string, gameID int64) string {
	if mapName == "" {
		mapName = "replay"
	}
	return MakeKey(mapName+".rec", gameID)
}

// LinkFor is the replay_link stored on a games row.
func LinkFor(key string) string {
	return LinkPrefix + url.PathEscape(key)
}
