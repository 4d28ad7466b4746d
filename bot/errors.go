package bot

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ConfiguredResourceNotFoundError reports a configured guild, channel or
// role id that Discord does not know. It needs an operator to fix config.
type ConfiguredResourceNotFoundError struct {
	Field string
	ID    string
	Err   error
}

func (e *ConfiguredResourceNotFoundError) Error() string {
	return fmt.Sprintf("configured %s %q was not found", e.Field, e.ID)
}

func (e *ConfiguredResourceNotFoundError) Unwrap() error { return e.Err }

// resourceError maps Discord "unknown guild/channel/role" errors for the
// configured id in field onto ConfiguredResourceNotFoundError.
func resourceError(field, id string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownRole:
			return &ConfiguredResourceNotFoundError{Field: field, ID: id, Err: err}
		}
	}
	return err
}
