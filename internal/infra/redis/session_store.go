package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"group-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps live rounds in Redis so several bot replicas share them.
// Layout per chat:
//
//	quiz:chat:{id}:seq       INCR counter, bumped on every Open
//	quiz:chat:{id}:round     HASH seq/answer/opened
//	quiz:chat:{id}:answered  SET of user ids for the live round
//
// Open and MarkAnswered run as Lua scripts, so the dedup check and insert are
// one atomic step and never observe a half-written round.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var openScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[1])
redis.call('DEL', KEYS[3])
redis.call('HSET', KEYS[2], 'seq', seq, 'answer', ARGV[1], 'opened', ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return seq
`)

var markScript = redis.NewScript(`
local round = redis.call('HMGET', KEYS[1], 'seq', 'answer', 'opened')
if not round[1] then
	return false
end
local added = redis.call('SADD', KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return {round[1], round[2], round[3], added}
`)

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, now: time.Now}
}

func (s *SessionStore) Open(ctx context.Context, chatID int64, answer string) (domain.Round, error) {
	opened := s.now()
	keys := []string{s.seqKey(chatID), s.roundKey(chatID), s.answeredKey(chatID)}
	seq, err := openScript.Run(ctx, s.client, keys, answer, opened.UnixMilli(), s.ttl.Milliseconds()).Int64()
	if err != nil {
		return domain.Round{}, fmt.Errorf("open round: %w", err)
	}
	return domain.Round{
		ChatID:   chatID,
		Seq:      seq,
		Answer:   answer,
		OpenedAt: time.UnixMilli(opened.UnixMilli()),
	}, nil
}

func (s *SessionStore) Lookup(ctx context.Context, chatID int64) (domain.Round, error) {
	vals, err := s.client.HMGet(ctx, s.roundKey(chatID), "seq", "answer", "opened").Result()
	if err != nil {
		return domain.Round{}, fmt.Errorf("lookup round: %w", err)
	}
	if vals[0] == nil {
		return domain.Round{}, domain.ErrNoActiveQuiz
	}
	return parseRound(chatID, vals[0], vals[1], vals[2])
}

func (s *SessionStore) MarkAnswered(ctx context.Context, chatID, userID int64) (domain.Round, bool, error) {
	keys := []string{s.roundKey(chatID), s.answeredKey(chatID)}
	res, err := markScript.Run(ctx, s.client, keys, userID, s.ttl.Milliseconds()).Slice()
	if errors.Is(err, redis.Nil) {
		return domain.Round{}, false, nil
	}
	if err != nil {
		return domain.Round{}, false, fmt.Errorf("mark answered: %w", err)
	}
	if len(res) != 4 {
		return domain.Round{}, false, fmt.Errorf("mark answered: unexpected reply %v", res)
	}
	round, err := parseRound(chatID, res[0], res[1], res[2])
	if err != nil {
		return domain.Round{}, false, err
	}
	added, _ := res[3].(int64)
	return round, added == 1, nil
}

func parseRound(chatID int64, seqVal, answerVal, openedVal interface{}) (domain.Round, error) {
	seqStr, _ := seqVal.(string)
	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return domain.Round{}, fmt.Errorf("parse round seq %v: %w", seqVal, err)
	}
	answer, _ := answerVal.(string)
	round := domain.Round{ChatID: chatID, Seq: seq, Answer: answer}
	if openedStr, ok := openedVal.(string); ok {
		if ms, err := strconv.ParseInt(openedStr, 10, 64); err == nil {
			round.OpenedAt = time.UnixMilli(ms)
		}
	}
	return round, nil
}

func (s *SessionStore) seqKey(chatID int64) string {
	return "quiz:chat:" + strconv.FormatInt(chatID, 10) + ":seq"
}

func (s *SessionStore) roundKey(chatID int64) string {
	return "quiz:chat:" + strconv.FormatInt(chatID, 10) + ":round"
}

func (s *SessionStore) answeredKey(chatID int64) string {
	return "quiz:chat:" + strconv.FormatInt(chatID, 10) + ":answered"
}
