package broadcast

import "fmt"

// Room keys scope event delivery. They double as broker routing keys; the
// colon-separated form keeps them out of the topic wildcard vocabulary, and
// hubs bind "#" anyway.
func SessionRoom(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func StationRoom(restaurantID, station string) string {
	return fmt.Sprintf("station:%s:%s", restaurantID, station)
}

func RestaurantRoom(restaurantID string) string {
	return fmt.Sprintf("restaurant:%s", restaurantID)
}
