// Package signin coordinates the sign-in screen of a storage appliance.
//
// A Coordinator bootstraps the session state (root password presence and
// failover status of the appliance), keeps the failover details current
// through push subscriptions, logs in with a cached token or credentials,
// issues a fresh session token after a successful login and finally
// navigates to the page the user was heading to.
//
// The state is read through observable projections:
//
//	coord, err := signin.New(signin.Config{Channel: client, Session: client.Session(), ...})
//	if err != nil {
//		return err
//	}
//	defer coord.Close()
//
//	updates := coord.CanLogin().Watch(ctx)
//	if err := coord.Initialize(ctx); err != nil {
//		return err
//	}
package signin
