package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/pkg/coachdto"
)

var errBadBody = coachdto.DomainError{Code: coachdto.CodeInvalidRequest, Message: "request body must be JSON"}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errBadBody
	}
	return nil
}

func (s *Server) bestMove(c *fiber.Ctx) error {
	var req coachdto.MoveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := s.svc.BestMove(c.UserContext(), req.FEN)
	if err != nil {
		return err
	}
	return c.JSON(bestMoveResponse(res))
}

func (s *Server) coach(c *fiber.Ctx) error {
	var req coachdto.CoachRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := s.svc.Coach(c.UserContext(), req.FEN, req.PlayerColor)
	if err != nil {
		return err
	}
	return c.JSON(coachdto.CoachResponse{
		BestMove:    res.BestMove.MoveSAN,
		UCI:         res.BestMove.MoveUCI,
		Explanation: res.Explanation,
		AnalysisID:  res.AnalysisID,
	})
}

func (s *Server) analyze(c *fiber.Ctx) error {
	var req coachdto.AnalyzeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := s.svc.Analyze(c.UserContext(), req.FEN)
	if err != nil {
		return err
	}
	return c.JSON(coachdto.AnalyzeResponse{Analysis: res.Analysis, AnalysisID: res.AnalysisID})
}

func (s *Server) chat(c *fiber.Ctx) error {
	var req coachdto.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reply, err := s.svc.Chat(c.UserContext(), req.Message, req.FEN)
	if err != nil {
		return err
	}
	return c.JSON(coachdto.ChatResponse{Reply: reply})
}

func (s *Server) loadPGN(c *fiber.Ctx) error {
	var req coachdto.PGNRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := s.svc.LoadPGN(c.UserContext(), req.PGN)
	if err != nil {
		return err
	}
	return c.JSON(coachdto.PGNResponse{
		Moves:    res.SAN,
		MovesUCI: res.UCI,
		FinalFEN: res.FinalFEN,
		Status:   res.Status.String(),
		PGN:      res.PGN,
	})
}

func (s *Server) describe(c *fiber.Ctx) error {
	var req coachdto.DescribeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	text, err := s.svc.Describe(req.FEN)
	if err != nil {
		return err
	}
	return c.JSON(coachdto.DescribeResponse{Description: text})
}

func (s *Server) boardImage(c *fiber.Ctx) error {
	png, err := s.svc.BoardImage(c.UserContext(), c.Query("fen"), c.Query("last"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(png)
}

func (s *Server) history(c *fiber.Ctx) error {
	items, err := s.svc.History(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	out := coachdto.HistoryResponse{Items: make([]coachdto.Analysis, 0, len(items))}
	for _, a := range items {
		out.Items = append(out.Items, analysisDTO(a))
	}
	return c.JSON(out)
}

func (s *Server) analysis(c *fiber.Ctx) error {
	a, err := s.svc.Analysis(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(analysisDTO(a))
}

func bestMoveResponse(res coach.BestMoveResult) coachdto.BestMoveResponse {
	return coachdto.BestMoveResponse{
		BestMove: res.MoveSAN,
		UCI:      res.MoveUCI,
		Ponder:   res.Ponder,
		ScoreCP:  res.ScoreCP,
		Mate:     res.Mate,
		Depth:    res.Depth,
		NoMove:   res.NoMove,
		Cached:   res.Cached,
		TookMS:   res.Duration.Milliseconds(),
	}
}

func analysisDTO(a *domain.Analysis) coachdto.Analysis {
	return coachdto.Analysis{
		ID:          a.ID,
		Kind:        a.Kind,
		FEN:         a.FEN,
		PlayerColor: a.PlayerColor,
		MoveUCI:     a.MoveUCI,
		MoveSAN:     a.MoveSAN,
		Text:        a.Text,
		EngineMS:    a.EngineLatency.Milliseconds(),
		CreatedAt:   a.CreatedAt,
	}
}

// statusFor maps domain error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case coachdto.CodeInvalidRequest, coachdto.CodeMalformedPosition, coachdto.CodeInvalidPGN:
		return fiber.StatusBadRequest
	case coachdto.CodeIllegalMove:
		return fiber.StatusUnprocessableEntity
	case coachdto.CodeNotFound:
		return fiber.StatusNotFound
	case coachdto.CodeEngineUnavailable, coachdto.CodeLLMUnavailable:
		return fiber.StatusServiceUnavailable
	case coachdto.CodeEngineCrashed, coachdto.CodeEngineBadMove:
		return fiber.StatusBadGateway
	case coachdto.CodeEngineTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	if de, ok := coachdto.AsDomainError(err); ok {
		status := statusFor(de.Code)
		if status >= fiber.StatusInternalServerError {
			s.logger.Warn("request_failed",
				zap.Any("request_id", c.Locals("request_id")),
				zap.String("path", c.Path()),
				zap.String("code", de.Code),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(coachdto.ErrorResponse{Code: de.Code, Detail: de.Error(), Retryable: de.Retryable})
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code := "http_" + strconv.Itoa(ferr.Code)
		if ferr.Code == fiber.StatusNotFound {
			code = coachdto.CodeNotFound
		}
		return c.Status(ferr.Code).JSON(coachdto.ErrorResponse{Code: code, Detail: ferr.Message})
	}
	s.logger.Error("request_failed", zap.Any("request_id", c.Locals("request_id")), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(coachdto.ErrorResponse{Code: coachdto.CodeInternal, Detail: "internal error"})
}
