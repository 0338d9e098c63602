package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cliphub/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Verifier      middleware.TokenVerifier
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Playlists     PlaylistStore
	Subscriptions SubscriptionStore
	Tweets        TweetStore
	Images        MediaStorage
	Ingestor      MediaIngestor
	DB            Pinger
	AuthLimiter   RateLimiter
	UploadDir     string
	MaxUploadSize int64
}

// RegisterRoutes wires HTTP handlers into the provided router. Everything
// under /api/v1 except registration, login, and token refresh requires an
// authenticated user.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Images:   deps.Images,
		Limiter:  deps.AuthLimiter,
	}
	videos := VideoHandler{
		Videos:        deps.Videos,
		History:       deps.Users,
		Ingestor:      deps.Ingestor,
		UploadDir:     deps.UploadDir,
		MaxUploadSize: deps.MaxUploadSize,
	}
	comments := CommentHandler{Comments: deps.Comments}
	likes := LikeHandler{Likes: deps.Likes}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	tweets := TweetHandler{Tweets: deps.Tweets}
	dashboard := DashboardHandler{Users: deps.Users, VideoCatalog: deps.Videos}

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/register", users.Register)
		r.Post("/users/login", users.Login)
		r.Post("/users/refresh-token", users.RefreshToken)
		r.Get("/videos", videos.List)
		r.With(middleware.AuthenticateOptional(deps.Verifier, deps.Users)).
			Get("/videos/{videoId}", videos.Get)
		r.Get("/comments/{videoId}", comments.ListForVideo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Verifier, deps.Users))

			r.Post("/users/logout", users.Logout)
			r.Post("/users/change-password", users.ChangePassword)
			r.Get("/users/current-user", users.CurrentUser)
			r.Patch("/users/update-user", users.UpdateProfile)
			r.Patch("/users/avatar", users.UpdateAvatar)
			r.Patch("/users/cover-image", users.UpdateCoverImage)
			r.Get("/users/channels/{username}", users.ChannelProfile)
			r.Get("/users/history", users.WatchHistory)
			r.Post("/users/history", users.AddToWatchHistory)

			r.Post("/videos", videos.Create)
			r.Patch("/videos/{videoId}", videos.Update)
			r.Delete("/videos/{videoId}", videos.Delete)
			r.Patch("/videos/toggle/publish/{videoId}", videos.TogglePublish)

			r.Post("/comments/{videoId}", comments.Create)
			r.Patch("/comments/c/{commentId}", comments.Update)
			r.Delete("/comments/c/{commentId}", comments.Delete)

			r.Post("/likes/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/likes/toggle/c/{commentId}", likes.ToggleComment)
			r.Post("/likes/toggle/t/{tweetId}", likes.ToggleTweet)
			r.Get("/likes/videos", likes.LikedVideos)

			r.Post("/playlists", playlists.Create)
			r.Get("/playlists/user/{userId}", playlists.ListForUser)
			r.Get("/playlists/{playlistId}", playlists.Get)
			r.Patch("/playlists/{playlistId}", playlists.Update)
			r.Delete("/playlists/{playlistId}", playlists.Delete)
			r.Patch("/playlists/add/{videoId}/{playlistId}", playlists.AddVideo)
			r.Patch("/playlists/remove/{videoId}/{playlistId}", playlists.RemoveVideo)

			r.Post("/subscriptions/c/{channelId}", subscriptions.Toggle)
			r.Get("/subscriptions/c/{channelId}", subscriptions.Subscribers)
			r.Get("/subscriptions/u/{subscriberId}", subscriptions.SubscribedChannels)

			r.Post("/tweets", tweets.Create)
			r.Get("/tweets/user/{userId}", tweets.ListForUser)
			r.Patch("/tweets/{tweetId}", tweets.Update)
			r.Delete("/tweets/{tweetId}", tweets.Delete)

			r.Get("/dashboard/stats", dashboard.Stats)
			r.Get("/dashboard/videos", dashboard.Videos)
		})
	})
}
