package model

// Member is the subset of a guild member the queue needs for gallery posts,
// role grants and statistics.
type Member struct {
	ID            string
	Username      string
	Discriminator string
	AvatarKey     string
	AvatarURL     string
	Roles         []string
}

// DisplayName mirrors how Discord renders a user tag.
func (m Member) DisplayName() string {
	if m.Discriminator == "" || m.Discriminator == "0" {
		return m.Username
	}
	return m.Username + "#" + m.Discriminator
}
