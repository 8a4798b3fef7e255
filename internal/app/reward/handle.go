package reward

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
	"server-reward-engine/internal/pkg/generr"
	"server-reward-engine/internal/pkg/util"
)

const defaultTopLimit = 10

// Handler exposes the engine over gin.
type Handler struct {
	engine *Engine
}

func NewHandler(e *Engine) *Handler {
	return &Handler{engine: e}
}

func (h *Handler) Register(r gin.IRouter) {
	customerGroup := r.Group("/customers")
	customerGroup.POST("", h.PostCustomer)
	customerGroup.GET("", h.GetCustomers)
	customerGroup.GET("/top/slots", h.GetTopBySlots)
	customerGroup.GET("/top/referrals", h.GetTopByReferrals)
	customerGroup.GET("/:id", h.GetCustomer)
	customerGroup.GET("/:id/referrals", h.GetReferrals)
	customerGroup.GET("/:id/team", h.GetTeam)

	rewardGroup := r.Group("/reward")
	rewardGroup.POST("/points", h.PostPoints)
	rewardGroup.POST("/merchant/distribute", h.PostMerchantDistribute)
	rewardGroup.POST("/login", h.PostDailyLogin)
	rewardGroup.POST("/transfer", h.PostTransfer)
	rewardGroup.POST("/slots/:id/evaluate", h.PostEvaluateSlot)
	rewardGroup.GET("/stats", h.GetStats)
	rewardGroup.GET("/distribution", h.GetDistribution)
	rewardGroup.GET("/transactions", h.GetTransactions)
	rewardGroup.GET("/vat", h.GetVatRecords)
}

type response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, response{Code: 200, Msg: "success", Data: data})
}

// fail logs err and answers with the matching generr code.
func fail(c *gin.Context, desc string, err error) {
	var (
		notFound     *NotFoundError
		insufficient *InsufficientFundsError
		claimed      *AlreadyClaimedError
		invalid      *InvalidAmountError
		concurrent   *ConcurrentUpdateError
		duplicate    *DuplicatePhoneError
	)

	switch {
	case errors.As(err, &notFound):
		log.Warnf("%s: %v", desc, err)
		switch notFound.Kind {
		case "reward slot":
			c.JSON(http.StatusNotFound, generr.NoSlot)
		case "referral code":
			c.JSON(http.StatusNotFound, generr.NoReferrer)
		default:
			c.JSON(http.StatusNotFound, generr.NoCustomer)
		}
	case errors.As(err, &insufficient):
		log.Warnf("%s: %v", desc, err)
		c.JSON(http.StatusBadRequest, generr.BalanceNotEnough)
	case errors.As(err, &claimed):
		log.Infof("%s: %v", desc, err)
		c.JSON(http.StatusConflict, generr.AlreadyClaimed)
	case errors.As(err, &invalid):
		log.Warnf("%s: %v", desc, err)
		c.JSON(http.StatusBadRequest, generr.InvalidAmount)
	case errors.As(err, &concurrent):
		log.Warnf("%s: %v", desc, err)
		c.JSON(http.StatusConflict, generr.ConcurrentUpdate)
	case errors.As(err, &duplicate):
		log.Warnf("%s: %v", desc, err)
		c.JSON(http.StatusConflict, generr.DuplicatePhone)
	case c.Request.Method == http.MethodGet:
		log.Errorf("err: %+v", errors.WithMessage(err, desc))
		c.JSON(http.StatusInternalServerError, generr.ReadDB)
	default:
		log.Errorf("err: %+v", errors.WithMessage(err, desc))
		c.JSON(http.StatusInternalServerError, generr.UpdateDB)
	}
}

func badParam(c *gin.Context, desc string, err error) {
	log.Errorf("err: %+v", errors.Wrap(err, desc))
	c.JSON(http.StatusBadRequest, generr.ParseParam)
}

func (h *Handler) PostCustomer(c *gin.Context) {
	req := struct {
		Name         string  `json:"name" form:"name"`
		Phone        string  `json:"phone" form:"phone" binding:"required"`
		CountryID    *uint64 `json:"country_id" form:"country_id"`
		ReferralCode string  `json:"referral_code" form:"referral_code"` // 邀请码
	}{}
	if err := c.ShouldBind(&req); err != nil {
		badParam(c, "should bind", err)
		return
	}

	cu, err := h.engine.Register(c.Request.Context(), RegisterRequest{
		Name:         req.Name,
		Phone:        req.Phone,
		CountryID:    req.CountryID,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		fail(c, "register customer", err)
		return
	}
	ok(c, cu)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badParam(c, "parse 'id'", err)
		return
	}
	d, err := h.engine.Customer(c.Request.Context(), id)
	if err != nil {
		fail(c, "get customer", err)
		return
	}
	ok(c, d)
}

func (h *Handler) GetCustomers(c *gin.Context) {
	req := struct {
		Country string `form:"country"`
		After   uint64 `form:"after"`
		Limit   int    `form:"limit"`
	}{}
	if err := c.ShouldBindQuery(&req); err != nil {
		badParam(c, "should bind query", err)
		return
	}
	country, err := util.ParseOptionalID(req.Country)
	if err != nil {
		badParam(c, "parse 'country'", err)
		return
	}
	cs, err := h.engine.Customers(c.Request.Context(), country, req.After, req.Limit)
	if err != nil {
		fail(c, "list customers", err)
		return
	}
	ok(c, cs)
}

func (h *Handler) GetTeam(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badParam(c, "parse 'id'", err)
		return
	}
	t, err := h.engine.Team(c.Request.Context(), id)
	if err != nil {
		fail(c, "get team", err)
		return
	}
	ok(c, t)
}

func (h *Handler) GetReferrals(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badParam(c, "parse 'id'", err)
		return
	}
	cs, err := h.engine.Referrals(c.Request.Context(), id)
	if err != nil {
		fail(c, "list referrals", err)
		return
	}
	ok(c, cs)
}

type topQuery struct {
	Limit   int    `form:"limit"`
	Country string `form:"country"`
}

func (h *Handler) parseTop(c *gin.Context) (int, *uint64, bool) {
	var q topQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParam(c, "should bind query", err)
		return 0, nil, false
	}
	country, err := util.ParseOptionalID(q.Country)
	if err != nil {
		badParam(c, "parse 'country'", err)
		return 0, nil, false
	}
	if q.Limit <= 0 {
		q.Limit = defaultTopLimit
	}
	return q.Limit, country, true
}

func (h *Handler) GetTopBySlots(c *gin.Context) {
	limit, country, valid := h.parseTop(c)
	if !valid {
		return
	}
	cs, err := h.engine.TopCustomersBySlots(c.Request.Context(), limit, country)
	if err != nil {
		fail(c, "top by slots", err)
		return
	}
	ok(c, cs)
}

func (h *Handler) GetTopByReferrals(c *gin.Context) {
	limit, country, valid := h.parseTop(c)
	if !valid {
		return
	}
	cs, err := h.engine.TopCustomersByReferrals(c.Request.Context(), limit, country)
	if err != nil {
		fail(c, "top by referrals", err)
		return
	}
	ok(c, cs)
}

func (h *Handler) PostPoints(c *gin.Context) {
	req := struct {
		CustomerID uint64           `json:"customer_id" form:"customer_id" binding:"required"`
		Points     *decimal.Decimal `json:"points" form:"points" binding:"required"`
		MerchantID *uint64          `json:"merchant_id" form:"merchant_id"`
	}{}
	if err := c.ShouldBind(&req); err != nil {
		badParam(c, "should bind", err)
		return
	}

	res, err := h.engine.Accumulate(c.Request.Context(), req.CustomerID, *req.Points, req.MerchantID)
	if err != nil {
		fail(c, "accumulate points", err)
		return
	}
	ok(c, res)
}

func (h *Handler) PostMerchantDistribute(c *gin.Context) {
	req := struct {
		MerchantID uint64           `json:"merchant_id" form:"merchant_id" binding:"required"`
		CustomerID uint64           `json:"customer_id" form:"customer_id" binding:"required"`
		Points     *decimal.Decimal `json:"points" form:"points" binding:"required"`
	}{}
	if err := c.ShouldBind(&req); err != nil {
		badParam(c, "should bind", err)
		return
	}

	res, err := h.engine.DistributeMerchantPoints(c.Request.Context(), req.MerchantID, req.CustomerID, *req.Points)
	if err != nil {
		fail(c, "distribute merchant points", err)
		return
	}
	ok(c, res)
}

func (h *Handler) PostDailyLogin(c *gin.Context) {
	req := struct {
		CustomerID uint64 `json:"customer_id" form:"customer_id" binding:"required"`
	}{}
	if err := c.ShouldBind(&req); err != nil {
		badParam(c, "should bind", err)
		return
	}

	res, err := h.engine.DailyLogin(c.Request.Context(), req.CustomerID)
	if err != nil {
		fail(c, "daily login", err)
		return
	}
	ok(c, res)
}

func (h *Handler) PostTransfer(c *gin.Context) {
	req := struct {
		CustomerID uint64           `json:"customer_id" form:"customer_id" binding:"required"`
		Amount     *decimal.Decimal `json:"amount" form:"amount" binding:"required"`
	}{}
	if err := c.ShouldBind(&req); err != nil {
		badParam(c, "should bind", err)
		return
	}

	res, err := h.engine.TransferToBalance(c.Request.Context(), req.CustomerID, *req.Amount)
	if err != nil {
		fail(c, "transfer to balance", err)
		return
	}
	ok(c, res)
}

func (h *Handler) PostEvaluateSlot(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badParam(c, "parse 'id'", err)
		return
	}
	res, err := h.engine.EvaluateSlot(c.Request.Context(), id)
	if err != nil {
		fail(c, "evaluate slot", err)
		return
	}
	ok(c, res)
}

func (h *Handler) GetStats(c *gin.Context) {
	country, err := util.ParseOptionalID(c.Query("country"))
	if err != nil {
		badParam(c, "parse 'country'", err)
		return
	}
	s, err := h.engine.Stats(c.Request.Context(), country)
	if err != nil {
		fail(c, "get stats", err)
		return
	}
	ok(c, s)
}

func (h *Handler) GetDistribution(c *gin.Context) {
	country, err := util.ParseOptionalID(c.Query("country"))
	if err != nil {
		badParam(c, "parse 'country'", err)
		return
	}
	d, err := h.engine.Distribution(c.Request.Context(), country)
	if err != nil {
		fail(c, "get distribution", err)
		return
	}
	ok(c, d)
}

func (h *Handler) GetTransactions(c *gin.Context) {
	req := struct {
		CustomerID string `form:"customer_id"`
		MerchantID string `form:"merchant_id"`
		SlotID     string `form:"reward_slot_id"`
		Type       string `form:"type"`
		Limit      int    `form:"limit"`
	}{}
	if err := c.ShouldBindQuery(&req); err != nil {
		badParam(c, "should bind query", err)
		return
	}
	if req.Type != "" && !model.ValidTxType(req.Type) {
		badParam(c, "check 'type'", errors.Errorf("unknown transaction type %s", req.Type))
		return
	}

	var (
		f   = dao.TxFilter{Type: req.Type, Limit: req.Limit}
		err error
	)
	if f.CustomerID, err = util.ParseOptionalID(req.CustomerID); err != nil {
		badParam(c, "parse 'customer_id'", err)
		return
	}
	if f.MerchantID, err = util.ParseOptionalID(req.MerchantID); err != nil {
		badParam(c, "parse 'merchant_id'", err)
		return
	}
	if f.RewardSlotID, err = util.ParseOptionalID(req.SlotID); err != nil {
		badParam(c, "parse 'reward_slot_id'", err)
		return
	}

	ts, err := h.engine.Transactions(c.Request.Context(), f)
	if err != nil {
		fail(c, "query transactions", err)
		return
	}
	ok(c, ts)
}

func (h *Handler) GetVatRecords(c *gin.Context) {
	req := struct {
		CustomerID string `form:"customer_id"`
		Limit      int    `form:"limit"`
	}{}
	if err := c.ShouldBindQuery(&req); err != nil {
		badParam(c, "should bind query", err)
		return
	}
	customerID, err := util.ParseOptionalID(req.CustomerID)
	if err != nil {
		badParam(c, "parse 'customer_id'", err)
		return
	}

	vs, err := h.engine.VatRecords(c.Request.Context(), customerID, req.Limit)
	if err != nil {
		fail(c, "list vat records", err)
		return
	}
	ok(c, vs)
}
