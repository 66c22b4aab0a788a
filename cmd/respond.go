package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/TheQwirl/qwirl-client/config"
	"github.com/TheQwirl/qwirl-client/internal/api"
	"github.com/TheQwirl/qwirl-client/internal/cache"
	"github.com/TheQwirl/qwirl-client/internal/session"
	"github.com/TheQwirl/qwirl-client/internal/ws"
)

var respondLive bool

var respondCmd = &cobra.Command{
	Use:   "respond <username>",
	Short: "Answer another user's Qwirl",
	Long: `Walk through another user's Qwirl question by question. Pick an
option by number, skip what you'd rather not answer (within the skip
budget), leave comments, and get your wavelength score at the end.
Completed sessions can be reviewed or topped up with newly added
questions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRespond(args[0])
	},
}

func init() {
	rootCmd.AddCommand(respondCmd)
	respondCmd.Flags().BoolVarP(&respondLive, "live", "l", false, "Stream live option statistics while you answer")
}

func runRespond(username string) {
	cfg := config.Load()
	if cfg.Token == "" {
		fmt.Println("❌ Not logged in. Run `qwirl login` first.")
		return
	}

	key, ok := cache.SessionKey(username)
	if !ok {
		fmt.Println("❌ A username is required.")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sessionCache cache.SessionCache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fmt.Println("⚠️ Redis unavailable, using in-memory cache:", err)
		} else {
			sessionCache = cache.NewRedisCache(rdb)
			defer rdb.Close()
		}
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.Token)
	coord := session.NewCoordinator(client, sessionCache, username, key)
	engine := session.NewEngine(coord, session.Options{
		MaxSkips:       cfg.MaxSkips,
		MinPolls:       cfg.MinPolls,
		RevealDuration: cfg.RevealDuration,
		Notifier: session.NotifierFunc(func(n session.Notice) {
			if n.Level == session.NoticeError {
				fmt.Println("❌", n.Message)
			} else {
				fmt.Println("ℹ️ ", n.Message)
			}
		}),
		OnReveal: animateReveal,
	})

	fmt.Printf("Fetching %s's Qwirl...\n", username)
	if err := engine.Load(ctx); err != nil {
		fmt.Println("❌ Could not load the session:", err)
		return
	}

	view := engine.View()
	if view.TotalPolls == 0 {
		fmt.Printf("😶 %s's Qwirl has no questions yet.\n", username)
		return
	}
	if view.TooFewPolls {
		fmt.Printf("🚧 %s's Qwirl isn't ready yet (%d of %d questions).\n",
			username, view.TotalPolls, cfg.MinPolls)
		return
	}

	if respondLive {
		feed := ws.NewFeed(cfg.WSBaseURL, client.Token(), view.SessionID, engine)
		go func() {
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Println("⚠️ Live statistics disconnected:", err)
			}
		}()
	}

	interact(ctx, engine, username)
}

// interact runs the main input loop until the responder quits.
func interact(ctx context.Context, engine *session.Engine, username string) {
	reader := bufio.NewReader(os.Stdin)
	for {
		view := engine.View()

		if view.IsCompleted && !view.IsReviewMode && !view.IsAnsweringNew {
			if !completedMenu(ctx, engine, reader, username, view) {
				return
			}
			continue
		}

		renderPoll(view)
		fmt.Printf("> [1-%d] answer · [Enter] %s · [p] previous · [c] comment · [q] quit\n",
			optionCount(view), view.PrimaryCTA.Label)
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)

		switch {
		case input == "q":
			fmt.Println("👋 See you!")
			return
		case input == "":
			engine.PrimaryCTA(ctx)
		case input == "p":
			if !view.PrevEnabled {
				fmt.Println("ℹ️  Already at the first question.")
				continue
			}
			engine.Previous()
		case input == "c":
			commentFlow(ctx, engine, reader, view)
		default:
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > optionCount(view) {
				fmt.Println("⚠️ Pick an option number, or press Enter for the main action.")
				continue
			}
			voteFlow(ctx, engine, view, n)
		}
	}
}

func optionCount(v session.View) int {
	if v.CurrentPoll == nil {
		return 0
	}
	return len(v.CurrentPoll.Options)
}

func voteFlow(ctx context.Context, engine *session.Engine, v session.View, n int) {
	if v.IsReviewMode {
		fmt.Println("ℹ️  You're reviewing; answers can't be changed here.")
		return
	}
	if v.IsAnsweredCurrent {
		fmt.Println("ℹ️  Already answered.")
		return
	}
	if v.SubmitInFlight {
		fmt.Println("ℹ️  Still saving your previous action...")
		return
	}
	option := v.CurrentPoll.Options[n-1]
	if err := engine.Vote(ctx, option); err == nil {
		fmt.Printf("✅ You picked %q.\n", option)
	}
}

func commentFlow(ctx context.Context, engine *session.Engine, reader *bufio.Reader, v session.View) {
	if err := engine.OpenComment(); err != nil {
		fmt.Println("ℹ️  Comments aren't available here.")
		return
	}
	current := engine.View().CommentDraft
	if current != "" {
		fmt.Printf("Current comment: %s\n", current)
	}
	fmt.Print("Comment (empty line to cancel): ")
	text, err := reader.ReadString('\n')
	if err != nil {
		engine.CancelComment()
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		engine.CancelComment()
		fmt.Println("ℹ️  Comment discarded.")
		return
	}
	engine.SetCommentDraft(text)
	if !engine.View().CanSaveComment {
		engine.CancelComment()
		fmt.Println("ℹ️  Comment unchanged.")
		return
	}
	if err := engine.SaveComment(ctx); err == nil {
		fmt.Println("✅ Comment saved.")
	}
}

// completedMenu shows the post-completion panel. Returns false to quit.
func completedMenu(ctx context.Context, engine *session.Engine, reader *bufio.Reader, username string, v session.View) bool {
	fmt.Println("\n========================================")
	fmt.Printf("🎉 You've completed %s's Qwirl!\n", username)
	fmt.Printf("🌊 Wavelength: %d%%\n", v.WavelengthScore)
	fmt.Printf("Answered %d · Skipped %d · Total %d\n",
		v.AnsweredCount, v.SkippedCount, v.TotalPolls)
	if v.NewCount > 0 {
		fmt.Printf("✨ %d new question(s) since your last visit!\n", v.NewCount)
	}
	fmt.Println("========================================")
	fmt.Println("> [r] review answers · [n] answer new questions · [q] quit")

	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.TrimSpace(input) {
	case "r":
		engine.StartReview()
	case "n":
		engine.StartAnsweringNew()
	case "q":
		fmt.Println("👋 See you!")
		return false
	}
	return true
}

func renderPoll(v session.View) {
	p := v.CurrentPoll
	if p == nil {
		return
	}
	fmt.Println("\n========================================")
	mode := ""
	if v.IsReviewMode {
		mode = " · reviewing"
	} else if v.IsAnsweringNew {
		mode = " · new questions"
	}
	fmt.Printf("Question %d/%d%s (skips: %d/%d)\n",
		v.CurrentPosition, v.TotalPolls, mode, v.SkippedCount, v.MaxSkips)
	fmt.Println(p.QuestionText)
	fmt.Println("----------------------------------------")

	showStats := v.IsAnsweredCurrent || v.IsReviewMode
	for i, opt := range p.Options {
		marker := "  "
		if v.UserAnswer != nil && *v.UserAnswer == opt {
			marker = "👉"
		}
		line := fmt.Sprintf("%s %d. %s", marker, i+1, opt)
		if showStats {
			line += fmt.Sprintf("  (%d)", p.OptionStatistics.Counts[opt])
		}
		if v.IsReviewMode && p.OwnerAnswer != nil && *p.OwnerAnswer == opt {
			line += "  ⭐ their answer"
		}
		fmt.Println(line)
	}
	if v.IsSkippedCurrent {
		fmt.Println("⏭️  You skipped this one.")
	}
	if c := p.Comment(); c != "" {
		fmt.Printf("💬 Your comment: %s\n", c)
	}
}

// animateReveal sweeps the wavelength counter from the old score to the
// new one, then prints the final line.
func animateReveal(r session.Reveal) {
	fmt.Println("\n🔮 Getting Wavelength...")
	const frames = 40
	step := r.Duration / frames
	for i := 0; i <= frames; i++ {
		score := r.From + (r.To-r.From)*i/frames
		fmt.Printf("\r🌊 Wavelength: %d%% ", score)
		time.Sleep(step)
	}
	fmt.Printf("\r🌊 Wavelength: %d%%\n", r.To)
}
