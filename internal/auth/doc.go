// Package auth provides admin authentication for the library API.
//
// Admins register with an email, a password and a name, then log in to get a
// server-side session cookie. Every /api/books and /api/dashboard route sits
// behind Middleware.RequireAuth, which resolves the session to a
// library.Principal that handlers pass explicitly into the library services.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Absolute session lifetime
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=false              # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before lockout
//	AUTH_ALLOW_REGISTRATION=true           # Allow accounts beyond the first
//	SESSION_STORE=database                 # database, redis or memory
//
// # Usage
//
//	store, err := auth.NewSessionStore(cfg.Session, sqlDB, redisClient)
//	sessions := auth.NewSessionManager(store, cfg.Auth)
//	service := auth.NewService(users.NewRepository(db), cfg.Auth)
//	guard := auth.NewMiddleware(service, sessions)
//
//	router.Use(sessions.LoadSession())
//	api := router.Group("/api/books", guard.RequireAuth())
//
// Extract the caller in handlers:
//
//	principal := auth.PrincipalFrom(c)
package auth
