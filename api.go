package inheritchain

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/EnzoRoselli/InheritChain/common"
	"github.com/EnzoRoselli/InheritChain/schema"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

func (s *InheritChain) runAPI(port string) {
	s.registerRoutes()
	if err := s.engine.Run(port); err != nil {
		panic(err)
	}
}

func (s *InheritChain) registerRoutes() {
	r := s.engine
	r.Use(common.CORSMiddleware())
	v1 := r.Group("/")
	{
		// posthumous message board
		v1.POST("/messages", s.postMessage)
		v1.GET("/messages", s.getMessages)
		v1.GET("/messages/heir/:address", s.getHeirMessages)
		v1.PUT("/messages/:id/heir-addresses", s.putMessageHeirs)
		v1.DELETE("/messages/:id", s.deleteMessage)

		// pinned content (deed metadata, documents)
		v2 := r.Group("/")
		{
			v2.Use(common.LimiterMiddleware(600, "m", s.config.IPWhiteList()))
			v2.POST("/pin", s.postPin)
		}
		v1.GET("/pin/:digest", s.getPin)

		// ledger reads
		v1.GET("/inheritance/:admin", s.getInheritanceAddress)
		v1.GET("/state/:address", s.getState)
		v1.GET("/requests/:address", s.getRequests)
		v1.GET("/heirs/:address", s.getHeirs)
		v1.GET("/balances/:address", s.getBalances)
		v1.GET("/dead/:address", s.getDead)
		v1.GET("/registry/:address", s.getRegistry)
		v1.GET("/nfts/:address/:heir", s.getHeirNFTs)
	}
}

func (s *InheritChain) postMessage(c *gin.Context) {
	req := schema.MessageReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if !ethcommon.IsHexAddress(req.AdminAddress) {
		errorResponse(c, ErrInvalidAddress.Error())
		return
	}
	msg := schema.Message{
		AdminAddress:       strings.ToLower(req.AdminAddress),
		InheritanceAddress: strings.ToLower(req.InheritanceAddress),
		MessageText:        req.MessageText,
	}
	if err := msg.SetRecipients(req.HeirAddresses); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.wdb.InsertMessage(&msg); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *InheritChain) getMessages(c *gin.Context) {
	admin := strings.ToLower(c.Query("adminAddress"))
	inheritance := strings.ToLower(c.Query("inheritanceContractAddress"))
	if admin == "" || inheritance == "" {
		errorResponse(c, "adminAddress and inheritanceContractAddress are required")
		return
	}
	msgs, err := s.wdb.GetMessagesByAdmin(admin, inheritance)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// getHeirMessages releases messages to a heir only after the administrator of
// the inheritance each message belongs to is observed dead.
func (s *InheritChain) getHeirMessages(c *gin.Context) {
	heir := c.Param("address")
	if !ethcommon.IsHexAddress(heir) {
		errorResponse(c, ErrInvalidAddress.Error())
		return
	}
	msgs, err := s.wdb.GetMessagesByHeir(heir)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	released := make([]schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		if !ethcommon.IsHexAddress(msg.InheritanceAddress) {
			continue
		}
		dead, err := s.cli.IsAdministratorDead(ethcommon.HexToAddress(msg.InheritanceAddress))
		if err != nil || !dead {
			continue
		}
		released = append(released, msg)
	}
	c.JSON(http.StatusOK, released)
}

func (s *InheritChain) putMessageHeirs(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	refs := make([]schema.HeirRef, 0, 4)
	if err := c.ShouldBindJSON(&refs); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.wdb.UpdateMessageHeirs(uint(id), refs); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *InheritChain) deleteMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.wdb.DeleteMessage(uint(id)); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *InheritChain) postPin(c *gin.Context) {
	if c.Request.Body == nil {
		errorResponse(c, "pin data can not be null")
		return
	}
	by, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	defer c.Request.Body.Close()
	if len(by) == 0 {
		errorResponse(c, "pin data can not be null")
		return
	}

	contentType := c.ContentType()
	uploader := c.GetHeader("X-Uploader-Address")
	digest, err := s.store.PinData(by, contentType, uploader)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, schema.RespPin{
		Digest: digest,
		URL:    s.store.GatewayURL(digest),
	})
}

func (s *InheritChain) getPin(c *gin.Context) {
	digest := c.Param("digest")
	data, err := s.store.GetData(digest)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	contentType := "application/octet-stream"
	if meta, err := s.store.GetMeta(digest); err == nil && meta.ContentType != "" {
		contentType = meta.ContentType
	}
	c.Data(http.StatusOK, contentType, data)
}

func (s *InheritChain) getInheritanceAddress(c *gin.Context) {
	admin := c.Param("admin")
	if !ethcommon.IsHexAddress(admin) {
		errorResponse(c, ErrInvalidAddress.Error())
		return
	}
	addr, err := s.cli.InheritanceOf(ethcommon.HexToAddress(admin))
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"inheritanceContractAddress": addr.Hex()})
}

func (s *InheritChain) inheritanceParam(c *gin.Context) (ethcommon.Address, bool) {
	addr := c.Param("address")
	if !ethcommon.IsHexAddress(addr) {
		errorResponse(c, ErrInvalidAddress.Error())
		return ethcommon.Address{}, false
	}
	return ethcommon.HexToAddress(addr), true
}

func (s *InheritChain) getState(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	state, err := s.cli.InheritanceState(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *InheritChain) getRequests(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	requests, err := s.cli.GetInheritanceRequests(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (s *InheritChain) getHeirs(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	heirs, err := s.cli.GetHeirs(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, heirs)
}

func (s *InheritChain) getBalances(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	ether, err := s.cli.GetEtherBalance(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	usdc, err := s.cli.GetUSDCBalance(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ether": FormatEther(ether),
		"usdc":  FormatUSDC(usdc),
	})
}

func (s *InheritChain) getDead(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	dead, err := s.cli.IsAdministratorDead(addr)
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead": dead})
}

func (s *InheritChain) getRegistry(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	rejected := s.cli.GetRejectedInheritances(addr)
	if keep := s.config.SurfacedRejectedCount(); len(rejected) > keep {
		rejected = rejected[len(rejected)-keep:]
	}
	resp := schema.RegistryResp{
		Pending:  hexAddrs(s.cli.GetPendingInheritances(addr)),
		Rejected: hexAddrs(rejected),
		Approved: hexAddrs(s.cli.GetApprovedInheritances(addr)),
	}
	c.JSON(http.StatusOK, resp)
}

func (s *InheritChain) getHeirNFTs(c *gin.Context) {
	addr, ok := s.inheritanceParam(c)
	if !ok {
		return
	}
	heir := c.Param("heir")
	if !ethcommon.IsHexAddress(heir) {
		errorResponse(c, ErrInvalidAddress.Error())
		return
	}
	tokenIds, err := s.cli.GetNFTDeedsByHeirAddress(addr, ethcommon.HexToAddress(heir))
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	deeds := make([]schema.DeedNFT, 0, len(tokenIds))
	for _, id := range tokenIds {
		deed, err := s.cli.GetElementByTokenId(id)
		if err != nil {
			continue
		}
		deeds = append(deeds, deed)
	}
	c.JSON(http.StatusOK, deeds)
}

func hexAddrs(addrs []ethcommon.Address) []string {
	res := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		res = append(res, addr.Hex())
	}
	return res
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func notFoundResponse(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}
