package signage

import "fmt"

// BaseTopic is the default MQTT topic prefix for the change feed.
const BaseTopic = "lumen/v1"

// TopicScreenEvents builds the change-feed topic for a screen.
func TopicScreenEvents(topicBase, screenID string) string {
	return fmt.Sprintf("%s/screen/%s/evt", topicBase, screenID)
}

// TopicScreenPresence builds the retained presence topic for a screen.
func TopicScreenPresence(topicBase, screenID string) string {
	return fmt.Sprintf("%s/screen/%s/presence", topicBase, screenID)
}
