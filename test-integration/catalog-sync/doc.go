// Package integration runs catalog-sync end to end against a fake CKAN server and a
// MongoDB container. The suite is built with the integration tag.
package integration
