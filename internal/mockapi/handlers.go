package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/users"
)

func (s *Server) handleLogin(c *gin.Context) {
	var req backend.Credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	valid := ok && acct.password == req.Password && acct.profile.IsActive
	s.mu.Unlock()
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	resp, err := s.issuePair(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req backend.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.Username == "" || len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"password": []string{"Ensure this field has at least 8 characters."}})
		return
	}

	s.mu.Lock()
	_, taken := s.accounts[req.Username]
	s.mu.Unlock()
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"A user with that username already exists."}})
		return
	}

	role := req.Role
	if role == "" {
		role = users.RoleEmployee
	}
	s.AddUser(req.Username, req.Password, users.Profile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		FullName:  req.FirstName + " " + req.LastName,
		Role:      role,
	})

	resp, err := s.issuePair(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	var req backend.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}

	username, ok := s.lookupRefresh(req.Refresh)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, err := s.mintAccess(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	resp := backend.RefreshResponse{Access: access}
	if s.rotate {
		resp.Refresh = newRefreshToken()
		s.mu.Lock()
		delete(s.refreshTokens, req.Refresh)
		s.refreshTokens[resp.Refresh] = username
		s.mu.Unlock()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogout(c *gin.Context) {
	var req backend.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Refresh token required"})
		return
	}

	s.mu.Lock()
	delete(s.refreshTokens, req.Refresh)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out"})
}

func (s *Server) handleGetMe(c *gin.Context) {
	profile, ok := s.profileFor(c.GetString(ctxUsername))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handlePatchMe(c *gin.Context) {
	var update users.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[c.GetString(ctxUsername)]
	if ok {
		acct.profile = applyUpdate(acct.profile, update)
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}

	profile, _ := s.profileFor(c.GetString(ctxUsername))
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleEmployees(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":   0,
		"results": []any{},
	})
}

func (s *Server) profileFor(username string) (users.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[username]
	if !ok {
		return users.Profile{}, false
	}
	return acct.profile, true
}

func applyUpdate(p users.Profile, u users.Update) users.Profile {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.FirstName != nil || u.LastName != nil {
		p.FullName = p.FirstName + " " + p.LastName
	}
	return p
}
