// Package ucitest provides a small scripted UCI engine for tests. Test
// binaries call MaybeRun from TestMain and point the engine path at
// os.Args[0]; the child process then speaks UCI instead of running tests.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const (
	// EnvEnable turns the current process into the fake engine.
	EnvEnable = "UCI_FAKE_ENGINE"
	// EnvWhiteCP is the evaluation from white's side; reported from the side to move.
	EnvWhiteCP = "UCI_FAKE_WHITE_CP"
	// EnvMate reports "score mate N" for the side to move instead of centipawns.
	EnvMate = "UCI_FAKE_MATE"
	// EnvHang makes the engine ignore "go".
	EnvHang = "UCI_FAKE_HANG"
	// EnvBestMove forces the bestmove when it is legal in the searched position.
	EnvBestMove = "UCI_FAKE_BESTMOVE"
	// EnvNoScore drops the score from every info line.
	EnvNoScore = "UCI_FAKE_NO_SCORE"
)

func MaybeRun() {
	if os.Getenv(EnvEnable) != "1" {
		return
	}
	os.Exit(Run(os.Stdin, os.Stdout))
}

func Run(in io.Reader, out io.Writer) int {
	e := &engine{out: out, multipv: 1, game: nchess.NewGame()}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			e.println("id name ucitest")
			e.println("uciok")
		case "isready":
			e.println("readyok")
		case "setoption":
			e.setOption(fields)
		case "ucinewgame":
			e.game = nchess.NewGame()
		case "position":
			e.position(fields)
		case "go":
			if os.Getenv(EnvHang) == "1" {
				continue
			}
			e.search()
		case "quit":
			return 0
		}
	}
	return 0
}

type engine struct {
	out     io.Writer
	multipv int
	game    *nchess.Game
}

func (e *engine) println(s string) {
	fmt.Fprintln(e.out, s)
}

func (e *engine) setOption(fields []string) {
	// setoption name MultiPV value N
	if len(fields) >= 5 && fields[2] == "MultiPV" {
		if n, err := strconv.Atoi(fields[4]); err == nil && n > 0 {
			e.multipv = n
		}
	}
}

func (e *engine) position(fields []string) {
	game := nchess.NewGame()
	idx := 1
	if idx < len(fields) && fields[idx] == "fen" {
		end := idx + 1
		for end < len(fields) && fields[end] != "moves" {
			end++
		}
		opt, err := nchess.FEN(strings.Join(fields[idx+1:end], " "))
		if err == nil {
			game = nchess.NewGame(opt)
		}
		idx = end
	} else {
		idx++
	}
	if idx < len(fields) && fields[idx] == "moves" {
		for _, mv := range fields[idx+1:] {
			if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
				break
			}
		}
	}
	e.game = game
}

func (e *engine) search() {
	legal := legalMoves(e.game)
	if len(legal) == 0 {
		e.println("info depth 0 score mate 0")
		e.println("bestmove (none)")
		return
	}
	if forced := os.Getenv(EnvBestMove); forced != "" {
		for i, mv := range legal {
			if mv == forced {
				legal[0], legal[i] = legal[i], legal[0]
				break
			}
		}
	}

	score := e.score()
	lines := e.multipv
	if lines > len(legal) {
		lines = len(legal)
	}
	for i := 0; i < lines; i++ {
		if os.Getenv(EnvNoScore) == "1" {
			e.println(fmt.Sprintf("info depth 8 multipv %d nodes 1000 pv %s", i+1, legal[i]))
			continue
		}
		e.println(fmt.Sprintf("info depth 8 multipv %d score %s nodes 1000 pv %s", i+1, shift(score, i), legal[i]))
	}
	e.println("bestmove " + legal[0])
}

func (e *engine) score() string {
	if v := os.Getenv(EnvMate); v != "" {
		return "mate " + v
	}
	cp := 25
	if v := os.Getenv(EnvWhiteCP); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cp = n
		}
	}
	if e.game.Position().Turn() == nchess.Black {
		cp = -cp
	}
	return "cp " + strconv.Itoa(cp)
}

// shift lowers secondary lines so multipv order stays meaningful.
func shift(score string, rank int) string {
	if rank == 0 || !strings.HasPrefix(score, "cp ") {
		return score
	}
	n, _ := strconv.Atoi(strings.TrimPrefix(score, "cp "))
	return "cp " + strconv.Itoa(n-15*rank)
}

func legalMoves(game *nchess.Game) []string {
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, valid[i].String())
	}
	sort.Strings(out)
	return out
}
