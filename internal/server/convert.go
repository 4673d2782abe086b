package server

import (
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/service/coach"
	"github.com/park285/chess-coach/pkg/coachdto"
)

func evaluation(e domain.Evaluation) coachdto.Evaluation {
	return coachdto.Evaluation{CP: e.CP, Mate: e.Mate, MateIn: e.MateIn, Display: e.String()}
}

func history(records []domain.MoveRecord) []coachdto.HistoryEntry {
	out := make([]coachdto.HistoryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, coachdto.HistoryEntry{
			Ply:         r.Ply,
			Move:        r.SAN,
			UCI:         r.Move,
			Piece:       r.Piece,
			Phase:       string(r.Phase),
			Quality:     string(r.Quality),
			EvalChange:  r.EvalChange,
			Explanation: r.Explanation,
			Reply:       r.Reply,
			PlayedAt:    r.PlayedAt,
		})
	}
	return out
}

func moveResponse(res *coach.MoveResult) coachdto.MoveResponse {
	ev := res.Evaluation
	out := coachdto.MoveResponse{
		FEN:  res.State.Position.FEN,
		Turn: string(res.State.Position.Turn),
		Move: coachdto.Move{
			UCI:       ev.Move.UCI,
			SAN:       ev.Move.SAN,
			Piece:     ev.Move.Piece,
			Capture:   ev.Move.Capture,
			Check:     ev.Move.Check,
			Promotion: ev.Move.Promotion,
		},
		Label:            string(res.Label),
		EvalBefore:       evaluation(ev.Before),
		EvalAfter:        evaluation(ev.After),
		EvalChange:       res.Record.EvalChange,
		BestMove:         ev.BestMove,
		Phase:            string(ev.Phase),
		Explanation:      res.Commentary.Text,
		CommentarySource: string(res.Commentary.Source),
		GameOver:         res.State.Outcome.Finished(),
		Result:           res.State.Outcome.Result,
		ResultMethod:     res.State.Outcome.Method,
		ArchivedGameID:   res.ArchivedID,
		History:          history(res.State.History),
	}
	if ev.Opening != nil {
		out.Opening = &coachdto.Opening{ECO: ev.Opening.ECO, Name: ev.Opening.Name}
	}
	if ev.Reply != nil {
		out.AIMove = ev.Reply.Move.UCI
		out.AIMoveSAN = ev.Reply.Move.SAN
		re := evaluation(ev.Reply.Evaluation)
		out.ReplyEvaluation = &re
	}
	return out
}

func stateResponse(snap coach.Snapshot) coachdto.StateResponse {
	return coachdto.StateResponse{
		SessionID:    snap.ID,
		PlayerColor:  string(snap.PlayerColor),
		FEN:          snap.Position.FEN,
		Turn:         string(snap.Position.Turn),
		Moves:        append([]string{}, snap.Position.Moves...),
		PlayerToMove: snap.PlayerToMove(),
		GameOver:     snap.Outcome.Finished(),
		Result:       snap.Outcome.Result,
		ResultMethod: snap.Outcome.Method,
		History:      history(snap.History),
		StartedAt:    snap.StartedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
}

func archivedGame(g *domain.ArchivedGame) coachdto.ArchivedGame {
	labels := make(map[string]int, len(g.Labels))
	for k, v := range g.Labels {
		labels[string(k)] = v
	}
	return coachdto.ArchivedGame{
		ID:           g.ID,
		SessionID:    g.SessionID,
		PlayerColor:  string(g.PlayerColor),
		ReplyPreset:  g.ReplyPreset,
		Result:       g.Result,
		ResultMethod: g.ResultMethod,
		MovesUCI:     g.MovesUCI,
		MovesSAN:     g.MovesSAN,
		PGN:          g.PGN,
		Labels:       labels,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
	}
}
