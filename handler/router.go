package handler

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerFunc handles one interaction.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Router dispatches interactions to registered handlers. Component custom
// ids are routed on the part before the first ":".
type Router struct {
	commandHandlers   map[string]HandlerFunc
	componentHandlers map[string]HandlerFunc
	logger            *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		commandHandlers:   make(map[string]HandlerFunc),
		componentHandlers: make(map[string]HandlerFunc),
		logger:            logger.Named("router"),
	}
}

// AddCommandHandler registers a handler for a slash command.
func (r *Router) AddCommandHandler(name string, handler HandlerFunc) {
	r.commandHandlers[name] = handler
}

// AddComponentHandler registers a handler for a message component prefix.
func (r *Router) AddComponentHandler(prefix string, handler HandlerFunc) {
	r.componentHandlers[prefix] = handler
}

// OnInteractionCreate is the main interaction router.
// It should be registered as the primary interaction handler on the session.
func (r *Router) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var (
		key     string
		handler HandlerFunc
		ok      bool
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		key = i.ApplicationCommandData().Name
		handler, ok = r.commandHandlers[key]
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		key, _, _ = strings.Cut(customID, ":")
		handler, ok = r.componentHandlers[key]
	default:
		return
	}
	if !ok {
		r.logger.Debug("no handler for interaction", zap.String("key", key))
		return
	}

	log := r.logger.With(zap.String("interaction", uuid.NewString()), zap.String("key", key))
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("interaction handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()
	log.Debug("dispatching interaction")
	handler(s, i)
}
