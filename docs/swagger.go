package docs

// @title           Tow Dispatch Service API
// @version         1.0
// @description     Tow dispatch service handles tow request creation, fare quoting, driver location tracking, request broadcasting to nearby tow trucks, and the full request lifecycle (accept, arrive, transit, complete, cancel). Drivers receive offers in real time over WebSocket.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
