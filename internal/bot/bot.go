package bot

import (
	"context"

	"guildwatch/internal/analytics"
	"guildwatch/internal/classifier"
	"guildwatch/internal/config"
	"guildwatch/internal/moderation"
	"guildwatch/internal/permissions"
	"guildwatch/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	session   *discordgo.Session
	executor  *moderation.Executor
	listener  *moderation.Listener
	analytics *analytics.Service
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, cls classifier.Classifier, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		session:   session,
		analytics: analyticsEngine,
	}

	platform := &sessionPlatform{session: session}
	b.executor = moderation.NewExecutor(platform, store, logger, moderation.ExecutorConfig{
		GuildID:                cfg.GuildID,
		BanReasonIncludesActor: cfg.Actions.BanReasonIncludesActor,
	})
	b.listener = moderation.NewListener(platform, cls, permissions.NewChecker(store), store, logger, moderation.ListenerConfig{
		Enabled:    cfg.AutoMod.Enabled,
		GuildID:    cfg.GuildID,
		LogChannel: cfg.ModLogChannel,
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}

	authorName := msg.Author.Username
	b.listener.HandleMessage(context.Background(), moderation.Message{
		ID:          msg.ID,
		GuildID:     msg.GuildID,
		ChannelID:   msg.ChannelID,
		AuthorID:    msg.Author.ID,
		AuthorName:  authorName,
		AuthorIsBot: msg.Author.Bot,
		Content:     msg.Content,
	})
}
