package queue

import "fmt"

// EntryText is the queue entry body shown to moderators.
func EntryText(promptName string, promptID int, userID, imageURL string) string {
	return fmt.Sprintf("**%s** (#%d) submission by <@%s>\n\n%s", promptName, promptID+1, userID, imageURL)
}

// GalleryTitle is the embed title of a gallery post.
func GalleryTitle(promptName string, promptID int) string {
	return fmt.Sprintf("%s (Prompt #%d)", promptName, promptID+1)
}

// PlaqueLines are the lines drawn on a gallery plaque; the first is bold.
func PlaqueLines(username, promptName string, promptID int) []string {
	return []string{"@" + username, fmt.Sprintf("%q (#%d)", promptName, promptID+1)}
}

// DenialNotice is the direct message sent when a submission is rejected.
func DenialNotice(promptName, eventName string) string {
	return fmt.Sprintf("Your %s %s submission has been denied by a staff member.\n\n"+
		"Please review that your submission was made according to our rules, "+
		"if you're confused about the denial feel free to DM Blob Mail.", promptName, eventName)
}
