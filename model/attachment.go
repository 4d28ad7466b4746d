package model

// Attachment is a file uploaded alongside a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ref is the attachment:// reference used by embeds to point at the file.
func (a *Attachment) Ref() string {
	return "attachment://" + a.Name
}
