package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	posts   service.PostService
	collabs service.CollaborationService
	tokens  TokenService
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, posts service.PostService, collabs service.CollaborationService, tokens TokenService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   users,
		posts:   posts,
		collabs: collabs,
		tokens:  tokens,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger), metricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.GET("/allposts", h.listPosts)
	router.GET("/posts/search", h.searchPosts)
	router.GET("/posts/:id/allcomments", h.listComments)
	router.GET("/collaboration/allcolabposts", h.listCollaborations)

	gated := router.Group("/", AccessGate(h.tokens, h.users, h.logger))
	{
		gated.GET("/profile", h.profile)
		gated.POST("/newpost", h.createPost)
		gated.GET("/posts/:id/likes", h.likeStatus)
		gated.POST("/posts/:id/comments", h.addComment)
		gated.POST("/posts/like", h.toggleLike)
		gated.POST("/addcolabpost", h.createCollaboration)
	}
}

type registerRequest struct {
	Name            string   `json:"name"`
	Institution     string   `json:"institution"`
	Interests       []string `json:"interests"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createPostRequest struct {
	Post string `json:"post"`
}

type addCommentRequest struct {
	Comment string `json:"comment"`
}

type toggleLikeRequest struct {
	PostID string `json:"post_id" binding:"required"`
	Liked  *bool  `json:"liked" binding:"required"`
}

type createCollaborationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Skills      string `json:"skills"`
	Contact     string `json:"contact"`
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(c, h.logger, fmt.Errorf("%w: passwords do not match", domain.ErrValidation))
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:        req.Name,
		Institution: req.Institution,
		Interests:   req.Interests,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusCreated, "user registered successfully", gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusOK, "login successful", gin.H{"token": token})
}

func (h *Handler) profile(c *gin.Context) {
	writeData(c, http.StatusOK, "user profile fetched successfully", userToResponse(currentUser(c)))
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if !h.bind(c, &req) {
		return
	}

	user := currentUser(c)
	post, err := h.posts.Create(c.Request.Context(), user.Email, user.Name, req.Post)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusCreated, "post created successfully", postToResponse(*post))
}

func (h *Handler) listPosts(c *gin.Context) {
	resp := []PostResponse{}
	for post, err := range h.posts.Feed(c.Request.Context()) {
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		resp = append(resp, postToResponse(post))
	}
	writeData(c, http.StatusOK, "posts fetched successfully", resp)
}

func (h *Handler) searchPosts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, h.logger, fmt.Errorf("%w: invalid limit", domain.ErrValidation))
			return
		}
		limit = n
	}

	posts, err := h.posts.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	writeData(c, http.StatusOK, "search results", resp)
}

func (h *Handler) likeStatus(c *gin.Context) {
	status, err := h.posts.LikeStatus(c.Request.Context(), c.Param("id"), currentUser(c).Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusOK, "like status fetched successfully", LikeStatusResponse{
		Liked:     status.Liked,
		LikeCount: status.LikeCount,
	})
}

func (h *Handler) listComments(c *gin.Context) {
	comments, err := h.posts.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusOK, "comments fetched successfully", commentsToResponse(comments))
}

func (h *Handler) addComment(c *gin.Context) {
	var req addCommentRequest
	if !h.bind(c, &req) {
		return
	}

	user := currentUser(c)
	comment, err := h.posts.AddComment(c.Request.Context(), c.Param("id"), user.Email, user.Name, req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusCreated, "comment added successfully", commentToResponse(*comment))
}

func (h *Handler) toggleLike(c *gin.Context) {
	var req toggleLikeRequest
	if !h.bind(c, &req) {
		return
	}

	count, err := h.posts.ToggleLike(c.Request.Context(), req.PostID, currentUser(c).Email, *req.Liked)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusOK, "like updated", gin.H{"like_count": count})
}

func (h *Handler) createCollaboration(c *gin.Context) {
	var req createCollaborationRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.collabs.Create(c.Request.Context(), currentUser(c), service.CollaborationInput{
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Contact:     req.Contact,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeData(c, http.StatusCreated, "collaboration request added successfully", collaborationToResponse(*created))
}

func (h *Handler) listCollaborations(c *gin.Context) {
	reqs, err := h.collabs.ListRecent(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]CollaborationResponse, len(reqs))
	for i := range reqs {
		resp[i] = collaborationToResponse(reqs[i])
	}
	writeData(c, http.StatusOK, "collaboration requests fetched successfully", resp)
}

type UserResponse struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Institution string   `json:"institution"`
	Interests   []string `json:"interests"`
}

// PostResponse omits the identities in the like set.
type PostResponse struct {
	ID         string            `json:"id"`
	AuthorName string            `json:"author_name"`
	Body       string            `json:"body"`
	LikeCount  int               `json:"like_count"`
	Comments   []CommentResponse `json:"comments"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

type CommentResponse struct {
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

type LikeStatusResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type CollaborationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Skills      string `json:"skills"`
	Contact     string `json:"contact"`
	OwnerName   string `json:"owner_name"`
	CreatedAt   string `json:"created_at"`
}

func userToResponse(user *domain.User) UserResponse {
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}
	return UserResponse{
		Email:       user.Email,
		Name:        user.Name,
		Institution: user.Institution,
		Interests:   interests,
	}
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:         post.ID,
		AuthorName: post.AuthorName,
		Body:       post.Body,
		LikeCount:  post.LikeCount,
		Comments:   commentsToResponse(post.Comments),
		CreatedAt:  post.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  post.UpdatedAt.Format(time.RFC3339),
	}
}

func commentToResponse(comment domain.Comment) CommentResponse {
	return CommentResponse{
		AuthorName: comment.AuthorName,
		Text:       comment.Text,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
	}
}

func commentsToResponse(comments []domain.Comment) []CommentResponse {
	resp := make([]CommentResponse, len(comments))
	for i := range comments {
		resp[i] = commentToResponse(comments[i])
	}
	return resp
}

func collaborationToResponse(req domain.CollaborationRequest) CollaborationResponse {
	return CollaborationResponse{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Contact:     req.Contact,
		OwnerName:   req.OwnerName,
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
	}
}
