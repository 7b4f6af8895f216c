// Package elvis is a client for the Elvis DAM REST API.
//
// Every operation funnels through one path: the URIBuilder turns an endpoint
// name, an ordered parameter set and optional asset metadata into a request
// URI, and the Dispatcher executes it with the caller's Session attached and
// classifies the outcome. Sessions are explicit values returned by Login and
// passed to every later call; a Client holds no per-session state and can
// serve many sessions concurrently.
//
//	client, err := elvis.New(elvis.Config{APIEndpointURI: "https://dam.example.com/services/", Username: "u", Password: "p"})
//	if err != nil {
//		return err
//	}
//	session, err := client.Login(ctx)
//	if err != nil {
//		return err
//	}
//	defer client.Logout(ctx, session)
//	rsp, err := client.Search(ctx, session, "gtin:123456", nil)
package elvis
