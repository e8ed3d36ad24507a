package usecase

import "fmt"

const (
	liveStatsCachePrefix = "livestat:gw:"
	explainCachePrefix   = "explain:gw:"
	resultCachePrefix    = "gameweekresult:gw:"
	summaryCacheKeyAll   = "summary:all"
)

func liveStatsCacheKey(gameweekID int) string {
	return fmt.Sprintf("%s%d", liveStatsCachePrefix, gameweekID)
}

func explainCacheKey(gameweekID int) string {
	return fmt.Sprintf("%s%d", explainCachePrefix, gameweekID)
}

func gameweekResultCacheKey(gameweekID int) string {
	return fmt.Sprintf("%s%d", resultCachePrefix, gameweekID)
}
