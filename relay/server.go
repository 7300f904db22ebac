// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package relay serves the HTTP endpoints of the forge service: uploads to
// the pinning service, weapon and collection reads, server-side forging and
// a JSON-RPC endpoint.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/blacksmith-forge/blacksmith/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// DefaultMaxUploadSize is the largest image accepted by the upload endpoint.
const DefaultMaxUploadSize = 10 << 20

// formOverhead is the body room left for multipart framing and the
// weaponInfo field on top of the image itself.
const formOverhead = 64 << 10

// Journal lists recorded forges.
type Journal interface {
	ListByAccount(account common.Address, limit int) ([]store.ForgeRecord, error)
}

// PublicConfig is the configuration exposed to clients.
type PublicConfig struct {
	ContractAddress        string `json:"contractAddress"`
	ChainID                int64  `json:"chainId"`
	ChainName              string `json:"chainName"`
	WalletConnectProjectID string `json:"walletConnectProjectId,omitempty"`
	Gateway                string `json:"ipfsGateway"`
	MintingFee             string `json:"mintingFee"`
}

// Config wires a Server.  Only Service and Uploader are required.
type Config struct {
	Service  *forge.Service
	Uploader forge.Uploader
	Forger   *forge.Forger
	Journal  Journal
	RPC      http.Handler
	Public   PublicConfig

	MaxUploadSize int64
	CORSOrigins   []string
	AccessLog     io.Writer
	Logger        log.Logger
}

// Server is the relay HTTP server.
type Server struct {
	cfg Config
	app *fiber.App
	log log.Logger
}

// NewServer creates the server and registers every route.
func NewServer(cfg Config) *Server {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	s := &Server{cfg: cfg, log: cfg.Logger.With("component", "relay")}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             int(cfg.MaxUploadSize) + formOverhead,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	if cfg.AccessLog != nil {
		s.app.Use(logger.New(logger.Config{Output: cfg.AccessLog}))
	}
	origins := "*"
	if len(cfg.CORSOrigins) > 0 {
		origins = strings.Join(cfg.CORSOrigins, ",")
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Cache-Control",
	}))

	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Get("/config", s.publicConfig)
	api.Post("/upload-image", s.uploadImage)
	api.Post("/upload-metadata", s.uploadMetadata)
	api.Get("/weapon/:tokenId", s.weapon)
	api.Get("/player/:address", s.player)
	api.Get("/collection/:address", s.collection)
	api.Get("/collection/:address/stats", s.collectionStats)
	api.Get("/quote", s.quote)
	api.Post("/forge", s.forge)
	api.Get("/forges/:address", s.forges)

	if cfg.RPC != nil {
		s.app.Post("/rpc", adaptor.HTTPHandler(cfg.RPC))
	}
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("Relay listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	out := fiber.Map{"status": "ok"}
	if s.cfg.Forger != nil {
		out["account"] = s.cfg.Forger.Account().Hex()
		out["state"] = s.cfg.Forger.State().String()
	}
	return c.JSON(out)
}

func (s *Server) publicConfig(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Public)
}

func (s *Server) uploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file provided")
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return badRequest(c, "File must be an image")
	}
	if file.Size > s.cfg.MaxUploadSize {
		return s.tooLarge(c)
	}
	var info forge.ImageInfo
	if raw := c.FormValue("weaponInfo"); raw == "" || json.Unmarshal([]byte(raw), &info) != nil {
		return badRequest(c, "Invalid weaponInfo")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	res, err := s.cfg.Uploader.UploadImage(c.UserContext(), data, file.Filename, info)
	if err != nil {
		s.log.Error("Image upload failed", "file", file.Filename, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload image to IPFS"})
	}
	return c.JSON(res)
}

func (s *Server) uploadMetadata(c *fiber.Ctx) error {
	var meta forge.Metadata
	if err := json.Unmarshal(c.Body(), &meta); err != nil || meta.Validate() != nil {
		return badRequest(c, "Invalid metadata structure")
	}
	res, err := s.cfg.Uploader.UploadMetadata(c.UserContext(), &meta)
	if err != nil {
		s.log.Error("Metadata upload failed", "name", meta.Name, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload metadata to IPFS"})
	}
	return c.JSON(res)
}

func (s *Server) weapon(c *fiber.Ctx) error {
	id := c.Params("tokenId")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return badRequest(c, "Invalid token id")
	}
	view, err := s.cfg.Service.Weapon(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(view)
}

func (s *Server) player(c *fiber.Ctx) error {
	addr, ok := address(c)
	if !ok {
		return badRequest(c, "Invalid address")
	}
	p, err := s.cfg.Service.Player(c.UserContext(), addr)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) collection(c *fiber.Ctx) error {
	addr, ok := address(c)
	if !ok {
		return badRequest(c, "Invalid address")
	}
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := s.cfg.Service.Collection(c.UserContext(), addr, filter)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) collectionStats(c *fiber.Ctx) error {
	addr, ok := address(c)
	if !ok {
		return badRequest(c, "Invalid address")
	}
	res, err := s.cfg.Service.Collection(c.UserContext(), addr, nil)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res.Stats)
}

func (s *Server) forge(c *fiber.Ctx) error {
	if s.cfg.Forger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Forging is not enabled on this server"})
	}
	var req forge.ForgeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "Invalid forge request")
	}
	res, err := s.cfg.Forger.Forge(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) quote(c *fiber.Ctx) error {
	if s.cfg.Forger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Forging is not enabled on this server"})
	}
	q, err := s.cfg.Forger.Quote(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"fee":      q.Fee.String(),
		"feeEther": forge.FormatEther(q.Fee),
		"gasLimit": q.GasLimit,
		"fallback": q.Fallback,
	})
}

func (s *Server) forges(c *fiber.Ctx) error {
	if s.cfg.Journal == nil {
		return c.JSON([]store.ForgeRecord{})
	}
	addr, ok := address(c)
	if !ok {
		return badRequest(c, "Invalid address")
	}
	recs, err := s.cfg.Journal.ListByAccount(addr, c.QueryInt("limit", store.DefaultJournalLimit))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(recs)
}

// fail renders a classified error.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	ge := forge.Classify(err, map[string]any{"path": c.Path()})
	p := forge.Describe(ge)
	s.log.Debug("Request failed", "path", c.Path(), "type", ge.Type, "err", err)
	return c.Status(statusOf(ge)).JSON(fiber.Map{
		"error":     ge.Message,
		"type":      ge.Type,
		"code":      ge.Code,
		"title":     p.Title,
		"action":    p.Action,
		"retryable": ge.Retryable,
	})
}

// tooLarge answers an oversized upload, whether the handler saw the file or
// the body limit cut the request off before routing.
func (s *Server) tooLarge(c *fiber.Ctx) error {
	return badRequest(c, "File size too large (max "+strconv.FormatInt(s.cfg.MaxUploadSize>>20, 10)+"MB)")
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusRequestEntityTooLarge {
		return s.tooLarge(c)
	}
	if code >= 500 {
		s.log.Error("Request error", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func statusOf(ge *forge.GameError) int {
	switch {
	case errors.Is(ge, forge.ErrCooldown):
		return fiber.StatusTooManyRequests
	case errors.Is(ge, forge.ErrInFlight):
		return fiber.StatusConflict
	case errors.Is(ge, forge.ErrCollectionUnavailable):
		return fiber.StatusServiceUnavailable
	}
	switch ge.Type {
	case forge.ValidationError:
		return fiber.StatusBadRequest
	case forge.ContractError, forge.WalletError:
		return fiber.StatusUnprocessableEntity
	case forge.NetworkError, forge.IPFSError:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func address(c *fiber.Ctx) (common.Address, bool) {
	raw := c.Params("address")
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseFilter reads the collection query: type, rarity, tier, q, sort.
// "all" and empty values disable a filter.
func parseFilter(c *fiber.Ctx) (*forge.Filter, error) {
	f := new(forge.Filter)
	if v := c.Query("type"); v != "" && v != "all" {
		t, err := forge.ParseWeaponType(v)
		if err != nil {
			return nil, err
		}
		f.WeaponType = &t
	}
	if v := c.Query("rarity"); v != "" && v != "all" {
		r, err := forge.ParseRarity(v)
		if err != nil {
			return nil, err
		}
		f.Rarity = &r
	}
	if v := c.Query("tier"); v != "" && v != "all" {
		tier, err := strconv.ParseUint(v, 10, 8)
		if err != nil || !forge.ValidTier(uint8(tier)) {
			return nil, errors.New("invalid tier")
		}
		f.Tier = uint8(tier)
	}
	f.Query = c.Query("q")
	order, err := forge.ParseSortOrder(c.Query("sort"))
	if err != nil {
		return nil, err
	}
	f.SortBy = order
	return f, nil
}
