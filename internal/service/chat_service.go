package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/querycache"
	"github.com/dom/puckquery/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const NoUserMessageText = "No user message found."

const historyLimit = 50

// QueryAnswerer answers a question about one game.
type QueryAnswerer interface {
	Answer(ctx context.Context, question string, game domain.GameIdentity) querycache.Reply
}

type ChatInput struct {
	Messages []domain.ChatMessage `json:"messages"`
	Game     domain.GameIdentity  `json:"game"`
}

type ChatResult struct {
	Message domain.ChatMessage
	Outcome domain.QueryOutcome
}

type ChatService struct {
	answerer     QueryAnswerer
	queryLogRepo repository.QueryLogRepository
	gameRepo     repository.GameRepository
	log          logrus.FieldLogger
}

func NewChatService(answerer QueryAnswerer, queryLogRepo repository.QueryLogRepository, gameRepo repository.GameRepository, log logrus.FieldLogger) *ChatService {
	return &ChatService{
		answerer:     answerer,
		queryLogRepo: queryLogRepo,
		gameRepo:     gameRepo,
		log:          log,
	}
}

// Chat answers the last user message of the conversation.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) ChatResult {
	question, ok := lastUserMessage(input.Messages)
	if !ok {
		return ChatResult{
			Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: NoUserMessageText},
			Outcome: domain.OutcomeNoQuestion,
		}
	}

	reply := s.answerer.Answer(ctx, question, input.Game)
	result := ChatResult{
		Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: reply.Text},
		Outcome: reply.Outcome,
	}
	s.record(ctx, input, question, result)
	return result
}

// Ask answers a single question with no prior conversation.
func (s *ChatService) Ask(ctx context.Context, game domain.GameIdentity, question string) ChatResult {
	return s.Chat(ctx, ChatInput{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: question}},
		Game:     game,
	})
}

// History returns recent questions asked about a stored game, newest first.
func (s *ChatService) History(ctx context.Context, gameID uint) ([]*domain.QueryLog, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	logs, err := s.queryLogRepo.ListByGame(ctx, game.Identity(), historyLimit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.QueryLog{}
	}
	return logs, nil
}

// record stores the exchange. Failing to store it does not fail the chat.
func (s *ChatService) record(ctx context.Context, input ChatInput, question string, result ChatResult) {
	messages, err := json.Marshal(append(append([]domain.ChatMessage{}, input.Messages...), result.Message))
	if err != nil {
		s.log.WithError(err).Warn("failed to encode chat messages")
		messages = []byte("[]")
	}

	entry := &domain.QueryLog{
		GameDate: input.Game.GameDate,
		HomeTeam: input.Game.HomeTeam,
		AwayTeam: input.Game.AwayTeam,
		Question: question,
		Answer:   result.Message.Content,
		Outcome:  result.Outcome,
		Messages: datatypes.JSON(messages),
	}
	if err := s.queryLogRepo.Create(ctx, entry); err != nil {
		s.log.WithError(err).Warn("failed to record chat query")
	}
}

func lastUserMessage(messages []domain.ChatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, domain.RoleUser) {
			return messages[i].Content, true
		}
	}
	return "", false
}
