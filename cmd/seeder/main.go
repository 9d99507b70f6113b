// Command seeder sends synthetic 1v1 report pairs to a running API, one
// report from each participant, so that every seeded game gets confirmed.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const defaultAPIURL = "http://localhost:8080/api/client/send-replay5"

var (
	maps  = []string{"2P_Battle_Marshes", "2P_Fata_Morgana", "2P_Meeting_of_Minds", "2P_Titan_Fall"}
	names = []string{"Gorgutz", "Eliphas", "Taldeer", "Indrick", "Crull", "Macha", "Kaptin", "Shas'O"}
)

type seeder struct {
	client *http.Client
	apiURL string
	secret string
	mod    string
	log    *zap.SugaredLogger
	rng    *rand.Rand
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	_ = godotenv.Load()

	s := &seeder{
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: envOr("SEED_API_URL", defaultAPIURL),
		secret: os.Getenv("API_SECRET"),
		mod:    envOr("SEED_MOD", "dxp2"),
		log:    logger.Sugar(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	games, err := strconv.Atoi(envOr("SEED_GAMES", "10"))
	if err != nil || games <= 0 {
		s.log.Fatalw("SEED_GAMES must be a positive integer", "value", os.Getenv("SEED_GAMES"))
	}

	ctx := context.Background()
	for i := 0; i < games; i++ {
		if err := s.seedGame(ctx); err != nil {
			s.log.Errorw("Seeding failed", "game", i, "error", err)
			os.Exit(1)
		}
	}
	s.log.Infow("Seeding complete", "games", games)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// seedGame sends the same game twice, once per player.
func (s *seeder) seedGame(ctx context.Context) error {
	a, b := s.rng.Intn(len(names)), s.rng.Intn(len(names)-1)
	if b >= a {
		b++
	}
	sids := [2]string{steamID(a), steamID(b)}
	winner := 1 + s.rng.Intn(2)

	q := url.Values{}
	q.Set("version", "21400")
	q.Set("type", "1")
	q.Set("map", maps[s.rng.Intn(len(maps))])
	q.Set("winby", "annihilate")
	q.Set("gtime", strconv.Itoa(300+s.rng.Intn(1800)))
	q.Set("mod", s.mod)
	q.Set("p1", base64.StdEncoding.EncodeToString([]byte(names[a])))
	q.Set("p2", base64.StdEncoding.EncodeToString([]byte(names[b])))
	q.Set("r1", strconv.Itoa(1+s.rng.Intn(9)))
	q.Set("r2", strconv.Itoa(1+s.rng.Intn(9)))
	q.Set("sid1", sids[0])
	q.Set("sid2", sids[1])
	q.Set("w1", strconv.Itoa(winner))

	for _, sender := range sids {
		q.Set("sid", sender)
		q.Set("apm", strconv.Itoa(40+s.rng.Intn(160)))
		if err := s.send(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) send(ctx context.Context, q url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if s.secret != "" {
		req.Header.Set("Authorization", "Bearer "+s.secret)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		GameID  *int64 `json:"gameId"`
		Skipped string `json:"skipped"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	s.log.Infow("Report sent", "sender", q.Get("sid"), "map", q.Get("map"), "game_id", out.GameID, "skipped", out.Skipped)
	return nil
}

// steamID derives a stable 17-digit id per seeded name.
func steamID(i int) string {
	return fmt.Sprintf("7656119800000%04d", i+1)
}
